package prettyprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicals/sdk/pkg/domain"
)

func TestRouteTableMarkdownListsActionsAndPages(t *testing.T) {
	table := domain.NewTable()
	require.NoError(t, table.Add("helloCurrentUser", &domain.Route{
		Slug: "helloCurrentUser", Kind: domain.RouteKindAction, Description: "says hi",
	}))
	require.NoError(t, table.Add("dashboard", &domain.Route{
		Slug: "dashboard", Kind: domain.RouteKindPage, Handler: func(io any, ctx any) (any, error) { return nil, nil },
	}))

	md := RouteTableMarkdown(table)
	assert.True(t, strings.Contains(md, "helloCurrentUser"))
	assert.True(t, strings.Contains(md, "dashboard"))
	assert.True(t, strings.Contains(md, "| dashboard | true |"))
}

func TestNewRendererProducesOutput(t *testing.T) {
	render := NewRenderer()
	out, err := render("# hello")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
