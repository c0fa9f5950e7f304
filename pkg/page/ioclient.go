package page

import (
	"context"

	"github.com/chronicals/sdk/pkg/ports"
)

// pageIOClient implements ports.IOClient for a page's children tree, per
// spec.md §4.5 step 4/5 ("drive it through the IOClient group; child
// render failures append to errors[]").
type pageIOClient struct {
	mgr     *Manager
	pageKey string
}

var _ ports.IOClient = (*pageIOClient)(nil)

func newPageIOClient(mgr *Manager, pageKey string) *pageIOClient {
	return &pageIOClient{mgr: mgr, pageKey: pageKey}
}

// Send schedules a coalesced SEND_PAGE of the session's current Layout.
// renderInstruction itself is neither stored nor sent. Pages don't wait on a response the
// way a transaction's io.* prompt does — the orchestrator renders
// children inline with the page and there's no synchronous reply to
// block on.
func (c *pageIOClient) Send(ctx context.Context, renderInstruction string) (string, error) {
	c.mgr.mu.Lock()
	_, ok := c.mgr.sessions[c.pageKey]
	c.mgr.mu.Unlock()
	if !ok {
		return "", nil
	}
	c.mgr.scheduleSendPage(c.pageKey)
	return "", nil
}

func (c *pageIOClient) Group() ports.IOClient {
	return c
}

func (c *pageIOClient) RegisterInlineAction(key string) {
	c.mgr.mu.Lock()
	defer c.mgr.mu.Unlock()
	if session, ok := c.mgr.sessions[c.pageKey]; ok {
		session.InlineActionKeys[key] = struct{}{}
	}
}
