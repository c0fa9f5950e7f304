package page

import "github.com/chronicals/sdk/pkg/domain"

// loadingSetter is the subset of Manager Context needs to push loading
// updates for a page.
type loadingSetter interface {
	setLoading(pageKey string, state map[string]any)
}

// Context is the `ctx` argument passed to a page handler, mirroring
// txn.HandlerContext for actions but scoped to a PageSession, per
// spec.md §4.5 step 3 ("ctx (similar to 4.4, plus a page-scoped
// loading...)").
type Context struct {
	host    loadingSetter
	session *domain.PageSession

	User        domain.User
	Params      map[string]any
	Environment domain.Environment
}

// Loading writes into pendingLoading[pageKey], per spec.md §4.5 step 3.
func (c *Context) Loading(state map[string]any) {
	c.host.setLoading(c.session.PageKey, state)
}
