package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/routes"
	"github.com/chronicals/sdk/pkg/singleshot"
)

func helloRoute() *routes.Builder {
	b := routes.NewBuilder()
	_ = b.Action("helloCurrentUser", domain.Route{
		Slug: "helloCurrentUser",
		Kind: domain.RouteKindAction,
		Handler: func(io any, ctx any) (any, error) {
			return "hi", nil
		},
	})
	return b
}

func TestGetHealthReturnsOK(t *testing.T) {
	cfg := config.Defaults()
	a := singleshot.New(cfg, nil, helloRoute(), nil)
	h, err := NewHandler(a, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPostInvokeRejectsEmptyBody(t *testing.T) {
	cfg := config.Defaults()
	a := singleshot.New(cfg, nil, helloRoute(), nil)
	h, err := NewHandler(a, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostInvokeRejectsMalformedJSON(t *testing.T) {
	cfg := config.Defaults()
	a := singleshot.New(cfg, nil, helloRoute(), nil)
	h, err := NewHandler(a, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostInvokeDeclaresHost(t *testing.T) {
	declared := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		declared <- r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"type": "success", "invalidSlugs": []string{}})
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Endpoint = "ws://" + srv.Listener.Addr().String() + "/ws"
	a := singleshot.New(cfg, nil, helloRoute(), nil)
	h, err := NewHandler(a, nil)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"httpHostId": "host-1"})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case p := <-declared:
		assert.Equal(t, "/api/hosts/declare", p)
	default:
		t.Fatal("expected declare request to reach fake server")
	}
}

var _ ports.RouteLoader = (*routes.Builder)(nil)
