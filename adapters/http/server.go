// Package http implements the serverless single-shot surface of
// spec.md section 6: a single POST endpoint that either waits out one
// orchestrator requestId or declares routes for one httpHostId, plus a
// GET health check.
package http

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	oapiruntime "github.com/oapi-codegen/runtime"

	"github.com/chronicals/sdk/pkg/singleshot"
)

//go:embed openapi.yaml
var rawSpec []byte

// RequestBody is the POST / body: exactly one of RequestID or HTTPHostID
// is set, per spec.md §6.
type RequestBody struct {
	RequestID  string `json:"requestId,omitempty"`
	HTTPHostID string `json:"httpHostId,omitempty"`
}

// Server implements the single-shot HTTP surface backed by a
// singleshot.Adapter.
type Server struct {
	adapter *singleshot.Adapter
	logger  *slog.Logger
	doc     *openapi3.T
	router  routers.Router
}

// NewHandler builds the chi-routed http.Handler, validating every
// request against the embedded openapi.yaml before it reaches adapter.
func NewHandler(adapter *singleshot.Adapter, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}

	s := &Server{adapter: adapter, logger: logger, doc: doc, router: router}

	r := chi.NewRouter()
	r.Get("/openapi.yaml", s.getSpec)
	r.Get("/", s.getHealth)
	r.Post("/", s.postInvoke)
	return r, nil
}

func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(rawSpec)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// validate matches r against the embedded spec's operations, returning
// a 400-worthy error when the body doesn't fit the declared schema.
func (s *Server) validate(r *http.Request, body []byte) error {
	route, pathParams, err := s.router.FindRoute(r)
	if err != nil {
		return err
	}
	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
	}
	// FindRoute consumes nothing from r.Body; rewind it for the filter and
	// the handler that reads it afterward.
	r.Body = io.NopCloser(bytes.NewReader(body))
	return openapi3filter.ValidateRequest(r.Context(), input)
}

func (s *Server) postInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := readAll(r)
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate(r, body); err != nil {
		s.logger.Warn("postInvoke: request failed schema validation", "err", err)
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var in RequestBody
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if in.RequestID == "" && in.HTTPHostID == "" {
		http.Error(w, "one of requestId or httpHostId is required", http.StatusBadRequest)
		return
	}

	instanceID := instanceIDFromHeader(r)

	if in.HTTPHostID != "" {
		resp, err := s.adapter.DeclareHost(r.Context(), in.HTTPHostID)
		if err != nil {
			s.logger.Error("postInvoke: DeclareHost failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if err := s.adapter.ServeRequest(r.Context(), instanceID, in.RequestID); err != nil {
		s.logger.Error("postInvoke: ServeRequest failed", "requestId", in.RequestID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"requestId": in.RequestID, "status": "completed"})
}

// instanceIDFromHeader binds the optional X-Instance-Id header the way
// spec.md §6 lets a serverless caller pin a stable instanceId across
// retries of the same underlying invocation, falling back to a fresh
// uuid when the caller doesn't supply one.
func instanceIDFromHeader(r *http.Request) string {
	var id string
	if raw := r.Header.Get("X-Instance-Id"); raw != "" {
		if err := oapiruntime.BindStyledParameterWithOptions("simple", "X-Instance-Id", raw, &id,
			oapiruntime.BindStyledParameterOptions{Explode: false, Required: false}); err == nil && id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func readAll(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte{}, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
