package hostsdk_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hostsdk "github.com/chronicals/sdk"
	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/hostsession"
)

func noopHandler(io, ctx any) (any, error) { return nil, nil }

func TestRegisterActionRejectsDuplicateSlug(t *testing.T) {
	host, err := hostsdk.New(config.Defaults())
	require.NoError(t, err)

	route := domain.Route{Slug: "helloCurrentUser", Access: domain.AccessPolicy{Type: "everyone"}}
	require.NoError(t, host.RegisterAction("helloCurrentUser", route, noopHandler))

	err = host.RegisterAction("helloCurrentUser", route, noopHandler)
	assert.Error(t, err)
}

func TestRegisterPageAddsToRouteTable(t *testing.T) {
	host, err := hostsdk.New(config.Defaults())
	require.NoError(t, err)

	page := domain.Route{Slug: "dashboard", Access: domain.AccessPolicy{Type: "everyone"}}
	require.NoError(t, host.RegisterPage("dashboard", page, noopHandler))

	route, ok := host.Routes().Lookup("dashboard")
	require.True(t, ok)
	assert.Equal(t, domain.RouteKindPage, route.Kind)
}

func TestSafeCloseBeforeServeReturnsError(t *testing.T) {
	host, err := hostsdk.New(config.Defaults())
	require.NoError(t, err)

	err = host.SafeClose(context.Background())
	assert.Error(t, err)
}

func TestImmediateCloseBeforeServeReturnsError(t *testing.T) {
	host, err := hostsdk.New(config.Defaults())
	require.NoError(t, err)

	assert.Error(t, host.ImmediateClose())
}

func TestStateBeforeServeIsIdle(t *testing.T) {
	host, err := hostsdk.New(config.Defaults())
	require.NoError(t, err)

	assert.Equal(t, hostsession.StateIdle, host.State())
}
