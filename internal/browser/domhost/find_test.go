package domhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

func TestFindCSS(t *testing.T) {
	h := newHost(t, pageSrc)

	raw, err := h.Find("#save", false, nil, schemas.Down)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "button", raw.(*html.Node).Data)

	// loose mode takes the first of several matches in document order
	raw, err = h.Find(".item", false, nil, schemas.Down)
	require.NoError(t, err)
	assert.Equal(t, "1", attrValue(raw.(*html.Node), "data-recid"))
}

func TestFindStrictRejectsAmbiguity(t *testing.T) {
	h := newHost(t, pageSrc)

	_, err := h.Find(".item", true, nil, schemas.Down)
	require.ErrorIs(t, err, ErrAmbiguousLocator)
	assert.Contains(t, err.Error(), "matched 2 nodes")

	// a single match is fine in strict mode
	raw, err := h.Find("#save", true, nil, schemas.Down)
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestFindNoMatchIsNotAnError(t *testing.T) {
	h := newHost(t, pageSrc)

	raw, err := h.Find("#ghost", false, nil, schemas.Down)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestFindEmptyLocator(t *testing.T) {
	h := newHost(t, pageSrc)

	_, err := h.Find("   ", false, nil, schemas.Down)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty locator")
}

func TestFindBadCSS(t *testing.T) {
	h := newHost(t, pageSrc)

	_, err := h.Find("p[", false, nil, schemas.Down)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "css locator")
}

func TestFindXPath(t *testing.T) {
	h := newHost(t, pageSrc)

	raw, err := h.Find(`//li[@data-recid='2']`, false, nil, schemas.Down)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "Two", h.Wrap(raw).Text())

	// parenthesized form is routed to xpath too
	raw, err = h.Find(`(//li)[1]`, false, nil, schemas.Down)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "One", h.Wrap(raw).Text())
}

func TestFindXPathScopedToRoot(t *testing.T) {
	h := newHost(t, pageSrc)
	menu := h.Wrap(mustNode(t, h, "#menu"))

	raw, err := h.Find(`./li`, false, menu, schemas.Down)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "1", attrValue(raw.(*html.Node), "data-recid"))
}

func TestFindXPathRejectsNonDown(t *testing.T) {
	h := newHost(t, pageSrc)
	value := h.Wrap(mustNode(t, h, ".value"))

	_, err := h.Find(`//div`, false, value, schemas.Up)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xpath locator")
	assert.Contains(t, err.Error(), "up")
}

func TestFindScopedToRoot(t *testing.T) {
	h := newHost(t, pageSrc)
	panel := h.Wrap(mustNode(t, h, "#panel"))
	menu := h.Wrap(mustNode(t, h, "#menu"))

	raw, err := h.Find(".value", false, panel, schemas.Down)
	require.NoError(t, err)
	assert.NotNil(t, raw)

	raw, err = h.Find(".value", false, menu, schemas.Down)
	require.NoError(t, err)
	assert.Nil(t, raw, "the value span lives outside the menu")
}

func TestFindScopeExcludesTheRootItself(t *testing.T) {
	h := newHost(t, pageSrc)
	panel := h.Wrap(mustNode(t, h, "#panel"))

	raw, err := h.Find("div", false, panel, schemas.Down)
	require.NoError(t, err)
	assert.Nil(t, raw, "the panel div must not match its own descendant query")
}

func TestFindDirectChild(t *testing.T) {
	h := newHost(t, pageSrc)
	app := h.Wrap(mustNode(t, h, "#app"))

	// li elements are grandchildren of #app, not children
	raw, err := h.Find("li", false, app, schemas.DirectChild)
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = h.Find("ul", false, app, schemas.DirectChild)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "menu", attrValue(raw.(*html.Node), "id"))
}

func TestFindLeadingGtForcesDirectChild(t *testing.T) {
	h := newHost(t, pageSrc)
	menu := h.Wrap(mustNode(t, h, "#menu"))

	raw, err := h.Find("> li", false, menu, schemas.Down)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "1", attrValue(raw.(*html.Node), "data-recid"))
}

func TestFindUpReturnsNearestAncestor(t *testing.T) {
	h := newHost(t, pageSrc)
	value := h.Wrap(mustNode(t, h, ".value"))

	raw, err := h.Find("div", false, value, schemas.Up)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "panel", attrValue(raw.(*html.Node), "id"), "nearest div wins over #app")

	raw, err = h.Find(".panel", false, value, schemas.Up)
	require.NoError(t, err)
	require.NotNil(t, raw)

	raw, err = h.Find("ul", false, value, schemas.Up)
	require.NoError(t, err)
	assert.Nil(t, raw, "no ul on the ancestor path")
}

func TestFindForeignRootErrors(t *testing.T) {
	h := newHost(t, pageSrc)

	_, err := h.Find("div", false, badRoot{}, schemas.Down)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a node of this host")
}

// badRoot is an element whose Node is not an *html.Node.
type badRoot struct{}

func (badRoot) IsAttached() bool                    { return true }
func (badRoot) IsVisible() bool                     { return true }
func (badRoot) Text() string                        { return "" }
func (badRoot) HasClass(string) bool                { return false }
func (badRoot) Contains(other schemas.Element) bool { return false }
func (badRoot) Describe() string                    { return "bad" }
func (badRoot) Node() any                           { return 42 }
func (badRoot) Rebind(any)                          {}
