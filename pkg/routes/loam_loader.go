package routes

import (
	"context"
	"fmt"

	"github.com/aretw0/loam"

	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/ports"
)

// RouteMetadata is the front-matter shape a routesDirectory document
// declares, adapted from the teacher's NodeMetadata front-matter pattern
// (pkg/adapters/loam.NodeMetadata) to this runtime's Route fields.
type RouteMetadata struct {
	Slug           string   `yaml:"slug" json:"slug"`
	Kind           string   `yaml:"kind" json:"kind"` // "action" | "page"
	GroupSlug      string   `yaml:"group" json:"group"`
	Description    string   `yaml:"description" json:"description"`
	Unlisted       bool     `yaml:"unlisted" json:"unlisted"`
	Backgroundable bool     `yaml:"backgroundable" json:"backgroundable"`
	WarnOnClose    bool     `yaml:"warnOnClose" json:"warnOnClose"`
	AccessType     string   `yaml:"accessType" json:"accessType"`
	AccessGroups   []string `yaml:"accessGroups" json:"accessGroups"`
}

// LoamLoader adapts github.com/aretw0/loam to ports.RouteLoader and
// ports.Watchable, the same role pkg/adapters/loam.Loader plays for
// trellis's node graph, repurposed here to load Route declarations
// instead of conversation-graph nodes.
type LoamLoader struct {
	Repo     *loam.TypedRepository[RouteMetadata]
	handlers map[string]domain.Handler
}

// NewLoamLoader wraps an initialized loam repository. handlers maps a
// route's slug to the Go function that implements it — loam supplies the
// declarative metadata (slug, kind, access, flags), never executable
// code, so the caller must still register real handlers for any slug the
// filesystem declares.
func NewLoamLoader(repo *loam.TypedRepository[RouteMetadata], handlers map[string]domain.Handler) *LoamLoader {
	return &LoamLoader{Repo: repo, handlers: handlers}
}

var (
	_ ports.RouteLoader = (*LoamLoader)(nil)
	_ ports.Watchable   = (*LoamLoader)(nil)
)

// Load reads every document in the loam repository and builds a
// domain.Table from their front matter, per spec.md §3's Route entity
// and §6's routesDirectory configuration key.
func (l *LoamLoader) Load(ctx context.Context) (*domain.Table, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("routes: loam list failed: %w", err)
	}

	table := domain.NewTable()
	for _, doc := range docs {
		meta := doc.Data
		slug := meta.Slug
		if slug == "" {
			slug = doc.ID
		}

		kind := domain.RouteKindAction
		if meta.Kind == "page" {
			kind = domain.RouteKindPage
		}

		route := &domain.Route{
			Slug:        slug,
			Kind:        kind,
			GroupSlug:   meta.GroupSlug,
			Description: meta.Description,
			Handler:     l.handlers[slug],
			Access:      domain.AccessPolicy{Type: meta.AccessType, Groups: meta.AccessGroups},
			Flags: domain.RouteFlags{
				Unlisted:       meta.Unlisted,
				Backgroundable: meta.Backgroundable,
				WarnOnClose:    meta.WarnOnClose,
			},
		}
		if kind == domain.RouteKindPage {
			route.Children = map[string]*domain.Route{}
		}

		if err := table.Add(slug, route); err != nil {
			return nil, fmt.Errorf("routes: %w", err)
		}
	}
	return table, nil
}

// Watch signals whenever the loam repository observes a filesystem
// change, driving pkg/hostsession's debounced re-declare (spec.md §4.6).
func (l *LoamLoader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("routes: loam watch failed: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
