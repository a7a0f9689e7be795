package domhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

const widgetSrc = `<html><body>
<div id="form-1" class="form">
	<input id="field-name" type="text">
	<div id="grid-1" class="grid">
		<div class="row" data-recid="r1">
			<span data-col="name">Ada</span>
			<span data-col="role">Engineer</span>
		</div>
		<div class="row" data-recid="r2">
			<span data-col="name">Grace</span>
			<span data-col="role">Admiral</span>
		</div>
	</div>
</div>
</body></html>`

func TestWidgetLifecycle(t *testing.T) {
	h := newHost(t, widgetSrc)
	w := h.NewWidget("name", "textfield")

	assert.False(t, w.Rendered())
	assert.Nil(t, w.El())

	rendered := 0
	off := w.On("render", func() { rendered++ })
	defer off()

	require.NoError(t, w.Render("#field-name"))
	assert.True(t, w.Rendered())
	assert.Equal(t, 1, rendered)
	require.NotNil(t, w.El())
	assert.Equal(t, "#field-name", w.El().Describe())

	err := w.Render("#ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no node matches")
}

func TestWidgetSetFiresMappedEvents(t *testing.T) {
	h := newHost(t, widgetSrc)
	w := h.NewWidget("name", "textfield")

	var fired []string
	for _, ev := range []string{"change", "toggle", "expand", "collapse", "load", "viewready"} {
		off := w.On(ev, func() { fired = append(fired, ev) })
		defer off()
	}

	w.Set("value", "ada")
	w.Set("checked", true)
	w.Set("pressed", true)
	w.Set("collapsed", true)
	w.Set("collapsed", false)
	w.Set("loaded", true)
	w.Set("viewReady", true)
	w.Set("width", 120) // unmapped, silent

	assert.Equal(t, []string{"change", "change", "toggle", "collapse", "expand", "load", "viewready"}, fired)
	assert.Equal(t, "ada", w.Get("value"))
	assert.Equal(t, 120, w.Get("width"))
	assert.Nil(t, w.Get("height"))
}

func TestWidgetSetQuiet(t *testing.T) {
	h := newHost(t, widgetSrc)
	w := h.NewWidget("name", "textfield")

	fired := 0
	off := w.On("change", func() { fired++ })
	defer off()

	w.SetQuiet("value", "silent")
	assert.Zero(t, fired)
	assert.Equal(t, "silent", w.Get("value"))
}

func TestWidgetListenerBookkeeping(t *testing.T) {
	h := newHost(t, widgetSrc)
	w := h.NewWidget("name", "textfield")

	off1 := w.On("change", func() {})
	off2 := w.On("change", func() {})
	assert.Equal(t, 2, w.ListenerCount("change"))

	off1()
	off1() // double off is a no-op
	assert.Equal(t, 1, w.ListenerCount("change"))
	off2()
	assert.Zero(t, w.ListenerCount("change"))
}

func TestWidgetDestroy(t *testing.T) {
	h := newHost(t, widgetSrc)
	w := h.NewWidget("name", "textfield")
	require.NoError(t, w.Render("#field-name"))
	el := w.El()

	destroyed := 0
	w.On("destroy", func() { destroyed++ })

	w.Destroy()
	w.Destroy() // idempotent

	assert.True(t, w.Destroyed())
	assert.False(t, w.Rendered())
	assert.Equal(t, 1, destroyed)
	assert.False(t, el.IsAttached(), "destroy removes the widget's node")
	assert.Nil(t, h.NodeOf("#field-name"))
}

func TestComponentForWalksAncestors(t *testing.T) {
	h := newHost(t, widgetSrc)
	grid := h.NewGrid("people", "grid")
	require.NoError(t, grid.Render("#grid-1"))

	cell := h.Wrap(mustNode(t, h, `span[data-col="name"]`))
	comp, ok := h.ComponentFor(cell)
	require.True(t, ok)
	assert.Equal(t, "people", comp.ID())

	_, isGrid := comp.(schemas.Grid)
	assert.True(t, isGrid, "the registry hands back the full grid surface")

	outside := h.Wrap(mustNode(t, h, "#field-name"))
	_, ok = h.ComponentFor(outside)
	assert.False(t, ok)
}

func TestFindComponentDialect(t *testing.T) {
	h := newHost(t, widgetSrc)
	form := h.NewWidget("form-main", "form")
	name := h.NewWidget("name", "textfield")
	name.SetQuiet("label", "Name")

	comp, ok := h.FindComponent("#name", nil, schemas.Down)
	require.True(t, ok)
	assert.Equal(t, "name", comp.ID())

	comp, ok = h.FindComponent("form", nil, schemas.Down)
	require.True(t, ok)
	assert.Same(t, form, comp)

	comp, ok = h.FindComponent(`textfield[label=Name]`, nil, schemas.Down)
	require.True(t, ok)
	assert.Same(t, name, comp)

	_, ok = h.FindComponent(`textfield[label=Email]`, nil, schemas.Down)
	assert.False(t, ok)

	_, ok = h.FindComponent("", nil, schemas.Down)
	assert.False(t, ok)

	_, ok = h.FindComponent("textfield[label]", nil, schemas.Down)
	assert.False(t, ok, "a bracket body without = is malformed")
}

func TestFindComponentScoping(t *testing.T) {
	h := newHost(t, widgetSrc)
	form := h.NewWidget("form-main", "form")
	name := h.NewWidget("name", "textfield")
	email := h.NewWidget("email", "textfield")
	h.NewWidget("stray", "textfield") // outside the form tree
	form.Add(name)
	form.Add(email)

	// Down finds descendants of the scope only, in registration order.
	comp, ok := h.FindComponent("textfield", form, schemas.Down)
	require.True(t, ok)
	assert.Equal(t, "name", comp.ID())

	// DirectChild behaves the same here since both fields are children.
	comp, ok = h.FindComponent("#email", form, schemas.DirectChild)
	require.True(t, ok)
	assert.Equal(t, "email", comp.ID())

	// Up walks the parent chain.
	comp, ok = h.FindComponent("form", name, schemas.Up)
	require.True(t, ok)
	assert.Same(t, form, comp)

	_, ok = h.FindComponent("grid", name, schemas.Up)
	assert.False(t, ok)

	// a scope outside the registry matches nothing
	_, ok = h.FindComponent("textfield", foreignComponent{}, schemas.Down)
	assert.False(t, ok)
}

func TestFindComponentSkipsDestroyed(t *testing.T) {
	h := newHost(t, widgetSrc)
	first := h.NewWidget("first", "button")
	second := h.NewWidget("second", "button")

	comp, ok := h.FindComponent("button", nil, schemas.Down)
	require.True(t, ok)
	assert.Same(t, first, comp)

	first.Destroy()
	comp, ok = h.FindComponent("button", nil, schemas.Down)
	require.True(t, ok)
	assert.Same(t, second, comp)
}

func TestListWidgetRecords(t *testing.T) {
	h := newHost(t, widgetSrc)
	lw := h.NewList("people", "dataview")

	assert.Zero(t, lw.RecordCount())
	_, ok := lw.RecordAt(0)
	assert.False(t, ok)

	ada := NewRecord("r1", "name", "Ada", "role", "Engineer")
	grace := NewRecord("r2", "name", "Grace", "role", "Admiral")
	lw.SetRecords(ada, grace)

	assert.Equal(t, 2, lw.RecordCount())

	r, ok := lw.RecordAt(1)
	require.True(t, ok)
	assert.Equal(t, "Grace", r.Get("name"))

	r, ok = lw.RecordByID("r1")
	require.True(t, ok)
	assert.Same(t, ada, r)

	_, ok = lw.RecordByID("r9")
	assert.False(t, ok)

	byRole := lw.RecordsWhere("role", "Admiral")
	require.Len(t, byRole, 1)
	assert.Same(t, grace, byRole[0])

	all := lw.Records()
	require.Len(t, all, 2)
	assert.Same(t, ada, all[0])
}

func TestListWidgetSelection(t *testing.T) {
	h := newHost(t, widgetSrc)
	lw := h.NewList("people", "dataview")
	ada := NewRecord("r1", "name", "Ada")
	grace := NewRecord("r2", "name", "Grace")
	lw.SetRecords(ada, grace)

	changes := 0
	off := lw.On("selectionchange", func() { changes++ })
	defer off()

	lw.Select([]schemas.Record{grace}, false)
	require.Len(t, lw.Selected(), 1)
	assert.Same(t, grace, lw.Selected()[0])

	lw.Select([]schemas.Record{ada}, true)
	sel := lw.Selected()
	require.Len(t, sel, 2)
	assert.Same(t, ada, sel[0], "selection reads back in presentation order")

	lw.Select([]schemas.Record{ada}, false)
	require.Len(t, lw.Selected(), 1)

	lw.Deselect([]schemas.Record{ada})
	assert.Empty(t, lw.Selected())
	assert.Equal(t, 4, changes)
}

func TestListWidgetSetRecordsPrunesSelection(t *testing.T) {
	h := newHost(t, widgetSrc)
	lw := h.NewList("people", "dataview")
	ada := NewRecord("r1", "name", "Ada")
	grace := NewRecord("r2", "name", "Grace")
	lw.SetRecords(ada, grace)
	lw.Select([]schemas.Record{ada, grace}, false)

	lw.SetRecords(grace)
	sel := lw.Selected()
	require.Len(t, sel, 1)
	assert.Same(t, grace, sel[0])
}

func TestListWidgetNodeFor(t *testing.T) {
	h := newHost(t, widgetSrc)
	lw := h.NewList("people", "dataview")
	ada := NewRecord("r1", "name", "Ada")
	missing := NewRecord("r9", "name", "Nobody")
	lw.SetRecords(ada, missing)

	_, ok := lw.NodeFor(ada)
	assert.False(t, ok, "unrendered widgets render no records")

	require.NoError(t, lw.Render("#grid-1"))

	raw, ok := lw.NodeFor(ada)
	require.True(t, ok)
	assert.Equal(t, "r1", attrValue(raw.(*html.Node), "data-recid"))

	_, ok = lw.NodeFor(missing)
	assert.False(t, ok)
	_, ok = lw.NodeFor(nil)
	assert.False(t, ok)
}

func TestListWidgetLoad(t *testing.T) {
	h := newHost(t, widgetSrc)
	lw := h.NewList("people", "dataview")

	var fired []string
	for _, ev := range []string{"datachanged", "load"} {
		off := lw.On(ev, func() { fired = append(fired, ev) })
		defer off()
	}

	lw.Load(NewRecord("r1", "name", "Ada"))

	assert.Equal(t, []string{"datachanged", "load"}, fired)
	assert.Equal(t, true, lw.Get("loaded"))
	assert.Equal(t, 1, lw.RecordCount())
}

func TestListWidgetScroller(t *testing.T) {
	h := newHost(t, widgetSrc)
	lw := h.NewList("people", "dataview")
	assert.Nil(t, lw.Scroller())

	scrolled := 0
	lw.SetScroller(FnScroller(func(node any, done func()) {
		scrolled++
		done()
	}))

	settled := false
	lw.Scroller().ScrollTo(nil, func() { settled = true })
	assert.Equal(t, 1, scrolled)
	assert.True(t, settled)
}

func TestGridColumns(t *testing.T) {
	h := newHost(t, widgetSrc)
	gw := h.NewGrid("people", "grid")
	nameCol := gw.AddColumn("col-name", "name", "text", "Name")
	roleCol := gw.AddColumn("col-role", "role", "text", "Role", "hidden", true)

	assert.Equal(t, 0, nameCol.Index())
	assert.Equal(t, 1, roleCol.Index())

	c, ok := gw.ColumnAt(1)
	require.True(t, ok)
	assert.Equal(t, "col-role", c.ID())
	_, ok = gw.ColumnAt(2)
	assert.False(t, ok)

	c, ok = gw.ColumnByID("col-name")
	require.True(t, ok)
	assert.Equal(t, "name", c.DataIndex())

	byIndex := gw.ColumnsWhere("dataIndex", "role")
	require.Len(t, byIndex, 1)
	assert.Equal(t, "col-role", byIndex[0].ID())

	hiddenCols := gw.ColumnsWhere("hidden", true)
	require.Len(t, hiddenCols, 1)
	assert.Equal(t, "col-role", hiddenCols[0].ID())
}

func TestGridCellNode(t *testing.T) {
	h := newHost(t, widgetSrc)
	gw := h.NewGrid("people", "grid")
	require.NoError(t, gw.Render("#grid-1"))
	nameCol := gw.AddColumn("col-name", "name")
	roleCol := gw.AddColumn("col-role", "role")

	grace := NewRecord("r2", "name", "Grace")
	gw.SetRecords(grace)

	raw, ok := gw.CellNode(grace, nameCol)
	require.True(t, ok)
	assert.Equal(t, "Grace", h.Wrap(raw).Text())

	raw, ok = gw.CellNode(grace, roleCol)
	require.True(t, ok)
	assert.Equal(t, "Admiral", h.Wrap(raw).Text())

	_, ok = gw.CellNode(grace, nil)
	assert.False(t, ok)

	ghost := gw.AddColumn("col-ghost", "salary")
	_, ok = gw.CellNode(grace, ghost)
	assert.False(t, ok)
}

// foreignComponent is a component that was never registered with the host.
type foreignComponent struct{}

func (foreignComponent) ID() string               { return "foreign" }
func (foreignComponent) XType() string            { return "alien" }
func (foreignComponent) El() schemas.Element      { return nil }
func (foreignComponent) Rendered() bool           { return false }
func (foreignComponent) Destroyed() bool          { return false }
func (foreignComponent) Get(string) any           { return nil }
func (foreignComponent) Set(string, any)          {}
func (foreignComponent) On(string, func()) func() { return func() {} }
