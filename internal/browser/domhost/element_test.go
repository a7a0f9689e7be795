package domhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementTextNormalizesWhitespace(t *testing.T) {
	h := newHost(t, `<html><body><p id="msg">  Hello
		<b>cruel</b>   world  </p></body></html>`)
	el := h.Wrap(mustNode(t, h, "#msg"))

	assert.Equal(t, "Hello cruel world", el.Text())
}

func TestElementVisibilityVocabulary(t *testing.T) {
	h := newHost(t, `<html><body>
		<div id="plain">a</div>
		<div id="attr" hidden>b</div>
		<div id="cls" class="x-hidden">c</div>
		<div id="disp" style="display: none">d</div>
		<div id="vis" style="color:red; visibility:hidden">e</div>
		<div id="url" style="background:url('a;b.png'); color:blue">f</div>
	</body></html>`)

	for expr, want := range map[string]bool{
		"#plain": true,
		"#attr":  false,
		"#cls":   false,
		"#disp":  false,
		"#vis":   false,
		"#url":   true, // the semicolon inside url() is not a separator
	} {
		el := h.Wrap(mustNode(t, h, expr))
		assert.Equal(t, want, el.IsVisible(), "visibility of %s", expr)
	}
}

func TestElementHiddenAncestorHidesDescendants(t *testing.T) {
	h := newHost(t, `<html><body>
		<div id="outer" class="x-hidden"><div id="inner">x</div></div>
	</body></html>`)
	inner := h.Wrap(mustNode(t, h, "#inner"))

	assert.True(t, inner.IsAttached())
	assert.False(t, inner.IsVisible())

	h.RemoveClass(h.NodeOf("#outer"), "x-hidden")
	assert.True(t, inner.IsVisible())
}

func TestElementDetachedReadsHidden(t *testing.T) {
	h := newHost(t, pageSrc)
	save := mustNode(t, h, "#save")
	el := h.Wrap(save)
	require.True(t, el.IsVisible())

	h.Remove(save)
	assert.False(t, el.IsAttached())
	assert.False(t, el.IsVisible())
}

func TestElementContains(t *testing.T) {
	h := newHost(t, pageSrc)
	panel := h.Wrap(mustNode(t, h, "#panel"))
	value := h.Wrap(mustNode(t, h, ".value"))
	menu := h.Wrap(mustNode(t, h, "#menu"))

	assert.True(t, panel.Contains(value))
	assert.True(t, panel.Contains(panel), "an element contains itself")
	assert.False(t, panel.Contains(menu))
	assert.False(t, panel.Contains(nil))
}

func TestElementDescribe(t *testing.T) {
	h := newHost(t, pageSrc)

	assert.Equal(t, "#save", h.Wrap(mustNode(t, h, "#save")).Describe())
	assert.Equal(t, "span", h.Wrap(mustNode(t, h, ".value")).Describe())
}

func TestElementRebindPreservesIdentity(t *testing.T) {
	h := newHost(t, pageSrc)
	one := mustNode(t, h, `li[data-recid="1"]`)
	two := mustNode(t, h, `li[data-recid="2"]`)

	el := h.Wrap(one)
	require.Equal(t, "One", el.Text())

	el.Rebind(two)
	assert.Equal(t, "Two", el.Text())
	assert.Same(t, two, el.Node(), "rebind swaps the backing node")
}

func TestElementHasClass(t *testing.T) {
	h := newHost(t, pageSrc)
	el := h.Wrap(mustNode(t, h, "#save"))

	assert.True(t, el.HasClass("btn"))
	assert.True(t, el.HasClass("primary"))
	assert.False(t, el.HasClass("prim"))
}
