package ports

import (
	"context"

	"github.com/chronicals/sdk/pkg/domain"
)

// RouteLoader produces the current route table. The default is an
// in-memory table built from code-registered routes; pkg/routes also
// offers a filesystem-backed loader for the optional routesDirectory
// configuration key.
type RouteLoader interface {
	Load(ctx context.Context) (*domain.Table, error)
}

// Watchable is implemented by loaders that can signal when the underlying
// route definitions change, driving the debounced re-declare in
// pkg/hostsession (spec.md §4.6 "Route change handling").
type Watchable interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}
