package domain

import (
	"fmt"
	"regexp"
)

// RouteKind distinguishes an Action (single invocation) from a Page
// (long-lived rendering session).
type RouteKind string

const (
	RouteKindAction RouteKind = "action"
	RouteKindPage   RouteKind = "page"
)

// slugPattern is the validation regex named in spec.md §6: slugs may only
// contain alphanumerics, underscore, dot and hyphen.
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateSlug reports whether s is a syntactically valid route slug.
func ValidateSlug(s string) bool {
	return s != "" && slugPattern.MatchString(s)
}

// AccessPolicy controls who may invoke a route. The orchestrator is the
// actual enforcement point; the host only declares the policy.
type AccessPolicy struct {
	Type   string   `json:"type"` // "everyone" | "group" | "given_permission"
	Groups []string `json:"groups,omitempty"`
}

// RouteFlags carries the boolean toggles named in spec.md §3.
type RouteFlags struct {
	Unlisted        bool
	Backgroundable  bool
	WarnOnClose     bool
}

// Handler is the function signature the host runtime invokes for an Action
// or a Page. The concrete IO/handler-authoring ergonomics (the "handler
// context" convenience API) are an external collaborator; the runtime only
// needs a value it can call with an IOClient and a HandlerContext and get
// back a result or error.
type Handler func(io any, ctx any) (any, error)

// Route is a node in the route tree: either a leaf Action or a Page with
// children. Handler is invoked for both kinds; Children is meaningful only
// for a Page, mirroring the teacher's Route/Node duality.
type Route struct {
	Slug        string
	Kind        RouteKind
	Handler     Handler
	Access      AccessPolicy
	Flags       RouteFlags
	Description string
	GroupSlug   string

	// Page-only fields.
	Children map[string]*Route
	OnChange func()
}

// Table is the full, currently-registered set of routes, keyed by their
// fully-qualified slug (parent.child for nested pages).
type Table struct {
	Routes map[string]*Route
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{Routes: make(map[string]*Route)}
}

// Add registers a route, validating slug uniqueness (invariant 3 in
// spec.md §3: "fully-qualified slugs are globally unique").
func (t *Table) Add(fqSlug string, r *Route) error {
	if !ValidateSlug(r.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, r.Slug)
	}
	if _, exists := t.Routes[fqSlug]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSlug, fqSlug)
	}
	t.Routes[fqSlug] = r
	return nil
}

// Lookup finds a route by its fully-qualified slug.
func (t *Table) Lookup(fqSlug string) (*Route, bool) {
	r, ok := t.Routes[fqSlug]
	return r, ok
}

// InvalidSlugs returns the fully-qualified slugs in the table that fail
// ValidateSlug — used to build the orchestrator's declare-time report.
func (t *Table) InvalidSlugs() []string {
	var bad []string
	for fq, r := range t.Routes {
		if !ValidateSlug(r.Slug) {
			bad = append(bad, fq)
		}
	}
	return bad
}
