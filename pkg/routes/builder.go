package routes

import (
	"context"

	"github.com/chronicals/sdk/pkg/domain"
)

// Builder accumulates routes registered directly in code (as opposed to
// loaded from the filesystem) into a domain.Table.
type Builder struct {
	table *domain.Table
}

// NewBuilder starts an empty in-memory route set.
func NewBuilder() *Builder {
	return &Builder{table: domain.NewTable()}
}

// Action registers a leaf action route under fqSlug.
func (b *Builder) Action(fqSlug string, r domain.Route) error {
	r.Kind = domain.RouteKindAction
	cp := r
	return b.table.Add(fqSlug, &cp)
}

// Page registers a page route (with children) under fqSlug.
func (b *Builder) Page(fqSlug string, r domain.Route) error {
	r.Kind = domain.RouteKindPage
	if r.Children == nil {
		r.Children = map[string]*domain.Route{}
	}
	cp := r
	return b.table.Add(fqSlug, &cp)
}

// Table returns the accumulated route table.
func (b *Builder) Table() *domain.Table {
	return b.table
}

// Load implements ports.RouteLoader for a Builder whose routes are all
// already registered — there's nothing to fetch.
func (b *Builder) Load(_ context.Context) (*domain.Table, error) {
	return b.table, nil
}
