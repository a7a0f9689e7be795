package future

import (
	"fmt"
	"sync"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

// itemCore is the record-backed variant of core. Its root playable resolves
// owner's collection, finds the record, and obtains the rendered node through
// the supplied lookup. The element resolver re-runs the whole lookup on every
// poll, keeping one wrapper rebound across re-renders, so chains survive view
// refreshes between playables.
type itemCore struct {
	c     *core
	owner *core
	rl    recordLocator
	node  func(coll schemas.Collection, r schemas.Record) (any, bool)

	mu     sync.Mutex
	record schemas.Record
	index  int
	el     schemas.Element
}

func newItemCore(owner *core, class, desc string, rl recordLocator,
	node func(coll schemas.Collection, r schemas.Record) (any, bool)) *itemCore {

	ic := &itemCore{owner: owner, rl: rl, node: node, index: -1}
	c := &core{
		d:       owner.d,
		class:   class,
		locator: desc,
		timeout: owner.timeout,
	}
	c.root = player.NewPredicate(func(probe *player.ReadyProbe) bool {
		coll := owner.collection()
		if coll == nil {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", owner.class, owner.describe()), "a collection")
			return false
		}
		if _, _, ok := rl.find(coll); !ok {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", class, desc), "present")
			return false
		}
		if ic.resolve() == nil {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", class, desc), "rendered")
			return false
		}
		return true
	}, player.WithTimeout(c.timeout))

	c.elFn = ic.resolve
	c.value = func() any { return ic.Record() }
	ic.c = c
	c.enqueue(c.root)
	return ic
}

// resolve re-runs the record and node lookup. The record and its index are
// cached as soon as the record is found, even before its node renders.
func (ic *itemCore) resolve() schemas.Element {
	coll := ic.owner.collection()
	if coll == nil {
		return nil
	}
	r, i, ok := ic.rl.find(coll)
	if !ok {
		return nil
	}
	ic.mu.Lock()
	ic.record, ic.index = r, i
	ic.mu.Unlock()

	n, ok := ic.node(coll, r)
	if !ok {
		return nil
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.el == nil {
		ic.el = ic.owner.d.host.Wrap(n)
	} else if ic.el.Node() != n {
		ic.el.Rebind(n)
	}
	return ic.el
}

// Record returns the resolved record, or nil before the root played.
func (ic *itemCore) Record() schemas.Record {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.record
}

// Index returns the resolved record's presentation index, or -1.
func (ic *itemCore) Index() int {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.index
}

// reveal enqueues the scroll-into-view playable. It completes when the
// collection's scroller signals scroll end, or immediately when the
// collection does not scroll.
func (ic *itemCore) reveal() {
	desc := ic.c.describe()
	ic.c.callback(func(done *player.Completion) {
		coll := ic.owner.collection()
		if coll == nil {
			done.Fail(fmt.Errorf("reveal %s: collection not resolved", desc))
			return
		}
		el := ic.resolve()
		if el == nil {
			done.Fail(fmt.Errorf("reveal %s: record not rendered", desc))
			return
		}
		sc := coll.Scroller()
		if sc == nil {
			done.Done()
			return
		}
		sc.ScrollTo(el.Node(), done.Done)
	}, player.WithExpireMessage(fmt.Sprintf("Timeout waiting for %s to scroll into view", desc)))
}

// selectedState waits for the record's membership in the owner's selection.
func (ic *itemCore) selectedState(deselect bool) {
	tag := "selected"
	if deselect {
		tag = "deselected"
	}
	desc := ic.c.describe()
	ic.c.enqueue(player.NewPredicate(func(probe *player.ReadyProbe) bool {
		coll := ic.owner.collection()
		if coll == nil {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", ic.owner.class, ic.owner.describe()), "a collection")
			return false
		}
		r, _, ok := ic.rl.find(coll)
		if !ok {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", ic.c.class, desc), "present")
			return false
		}
		if recordIn(coll.Selected(), r) != deselect {
			return true
		}
		probe.SetWaiting(fmt.Sprintf("%s (%s)", ic.c.class, desc), tag)
		return false
	}, player.WithTimeout(ic.c.timeout)))
}

// Item is a future over the element rendering one record of a List.
type Item struct {
	ic    *itemCore
	owner *List
}

func newItem(owner *List, rl recordLocator) *Item {
	desc := joinDesc(owner.c.describe(), rl.String())
	ic := newItemCore(owner.c, classItem, desc, rl,
		func(coll schemas.Collection, r schemas.Record) (any, bool) {
			return coll.NodeFor(r)
		})
	return &Item{ic: ic, owner: owner}
}

// List returns the owning list future, for continuing its chain.
func (f *Item) List() *List {
	return f.owner
}

// Record returns the record resolved so far, or nil.
func (f *Item) Record() schemas.Record {
	return f.ic.Record()
}

// Index returns the resolved record's presentation index, or -1.
func (f *Item) Index() int {
	return f.ic.Index()
}

// Reveal scrolls the item into view, completing on the scroller's scroll-end
// signal.
func (f *Item) Reveal() *Item {
	f.ic.reveal()
	return f
}

// Click injects a click on the item's element.
func (f *Item) Click(opts ...player.Option) *Item {
	f.ic.c.event(schemas.Click, opts...)
	return f
}

// Tap injects the tap gesture on the item's element.
func (f *Item) Tap(opts ...player.Option) *Item {
	f.ic.c.event(schemas.Tap, opts...)
	return f
}

// DoubleClick injects a double click on the item's element.
func (f *Item) DoubleClick(opts ...player.Option) *Item {
	f.ic.c.event(schemas.DblClick, append([]player.Option{player.WithDetail(2)}, opts...)...)
	return f
}

// Selected holds the chain until the item's record is selected.
func (f *Item) Selected() *Item {
	f.ic.selectedState(false)
	return f
}

// Deselected holds the chain until the item's record is not selected.
func (f *Item) Deselected() *Item {
	f.ic.selectedState(true)
	return f
}

// Visible holds the chain until the item's element is visible.
func (f *Item) Visible() *Item {
	f.ic.c.state("visible", "")
	return f
}

// Hidden holds the chain until the item's element is hidden.
func (f *Item) Hidden() *Item {
	f.ic.c.state("hidden", "")
	return f
}

// Text holds the chain until the item's text equals want.
func (f *Item) Text(want string) *Item {
	f.ic.c.state("text", fmt.Sprintf("showing %q", want), want)
	return f
}

// TextLike holds the chain until the item's text contains want.
func (f *Item) TextLike(want string) *Item {
	f.ic.c.state("textLike", fmt.Sprintf("showing text like %q", want), want)
	return f
}

// HasCls holds the chain until the item's element carries the class.
func (f *Item) HasCls(name string) *Item {
	f.ic.c.state("hasCls", fmt.Sprintf("carrying class %q", name), name)
	return f
}

// And enqueues inspection steps; callbacks receive the resolved record.
func (f *Item) And(steps ...AndStep) *Item {
	f.ic.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Item) Wait(steps ...WaitStep) *Item {
	f.ic.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the item's
// element matching selector.
func (f *Item) Down(selector string) *Element {
	return f.ic.c.derive(selector, schemas.Down)
}

// Row is a future over the element rendering one record of a Grid.
type Row struct {
	ic    *itemCore
	owner *Grid
}

func newRow(owner *Grid, rl recordLocator) *Row {
	desc := joinDesc(owner.c.describe(), rl.String())
	ic := newItemCore(owner.c, classRow, desc, rl,
		func(coll schemas.Collection, r schemas.Record) (any, bool) {
			return coll.NodeFor(r)
		})
	return &Row{ic: ic, owner: owner}
}

// Grid returns the owning grid future, for continuing its chain.
func (f *Row) Grid() *Grid {
	return f.owner
}

// Record returns the record resolved so far, or nil.
func (f *Row) Record() schemas.Record {
	return f.ic.Record()
}

// Index returns the resolved record's presentation index, or -1.
func (f *Row) Index() int {
	return f.ic.Index()
}

// CellAt returns a future over this row's cell in the column at visual index.
func (f *Row) CellAt(index int) *Cell {
	return newCell(f, columnLocator{byIndex: true, index: index})
}

// CellByID returns a future over this row's cell in the column with id.
func (f *Row) CellByID(id string) *Cell {
	return newCell(f, columnLocator{byID: true, id: id})
}

// CellWhere returns a future over this row's cell in the first column whose
// named property equals value.
func (f *Row) CellWhere(prop string, value any) *Cell {
	return newCell(f, columnLocator{prop: prop, value: value})
}

// Reveal scrolls the row into view, completing on the scroller's scroll-end
// signal.
func (f *Row) Reveal() *Row {
	f.ic.reveal()
	return f
}

// Click injects a click on the row's element.
func (f *Row) Click(opts ...player.Option) *Row {
	f.ic.c.event(schemas.Click, opts...)
	return f
}

// Tap injects the tap gesture on the row's element.
func (f *Row) Tap(opts ...player.Option) *Row {
	f.ic.c.event(schemas.Tap, opts...)
	return f
}

// DoubleClick injects a double click on the row's element.
func (f *Row) DoubleClick(opts ...player.Option) *Row {
	f.ic.c.event(schemas.DblClick, append([]player.Option{player.WithDetail(2)}, opts...)...)
	return f
}

// Selected holds the chain until the row's record is selected.
func (f *Row) Selected() *Row {
	f.ic.selectedState(false)
	return f
}

// Deselected holds the chain until the row's record is not selected.
func (f *Row) Deselected() *Row {
	f.ic.selectedState(true)
	return f
}

// Visible holds the chain until the row's element is visible.
func (f *Row) Visible() *Row {
	f.ic.c.state("visible", "")
	return f
}

// Hidden holds the chain until the row's element is hidden.
func (f *Row) Hidden() *Row {
	f.ic.c.state("hidden", "")
	return f
}

// HasCls holds the chain until the row's element carries the class.
func (f *Row) HasCls(name string) *Row {
	f.ic.c.state("hasCls", fmt.Sprintf("carrying class %q", name), name)
	return f
}

// And enqueues inspection steps; callbacks receive the resolved record.
func (f *Row) And(steps ...AndStep) *Row {
	f.ic.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Row) Wait(steps ...WaitStep) *Row {
	f.ic.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the row's
// element matching selector.
func (f *Row) Down(selector string) *Element {
	return f.ic.c.derive(selector, schemas.Down)
}

// Cell is a future over one cell of a grid row: the row's record locator
// narrowed by a column locator.
type Cell struct {
	ic    *itemCore
	owner *Row
}

func newCell(owner *Row, cl columnLocator) *Cell {
	gridCore := owner.ic.owner
	desc := joinDesc(owner.ic.c.locator, cl.String())
	ic := newItemCore(gridCore, classCell, desc, owner.ic.rl,
		func(coll schemas.Collection, r schemas.Record) (any, bool) {
			g, ok := coll.(schemas.Grid)
			if !ok {
				return nil, false
			}
			col, found := cl.find(g)
			if !found {
				return nil, false
			}
			return g.CellNode(r, col)
		})
	return &Cell{ic: ic, owner: owner}
}

// Row returns the owning row future, for continuing its chain.
func (f *Cell) Row() *Row {
	return f.owner
}

// Record returns the record resolved so far, or nil.
func (f *Cell) Record() schemas.Record {
	return f.ic.Record()
}

// Reveal scrolls the cell into view, completing on the scroller's scroll-end
// signal.
func (f *Cell) Reveal() *Cell {
	f.ic.reveal()
	return f
}

// Click injects a click on the cell's element.
func (f *Cell) Click(opts ...player.Option) *Cell {
	f.ic.c.event(schemas.Click, opts...)
	return f
}

// Tap injects the tap gesture on the cell's element.
func (f *Cell) Tap(opts ...player.Option) *Cell {
	f.ic.c.event(schemas.Tap, opts...)
	return f
}

// DoubleClick injects a double click on the cell's element.
func (f *Cell) DoubleClick(opts ...player.Option) *Cell {
	f.ic.c.event(schemas.DblClick, append([]player.Option{player.WithDetail(2)}, opts...)...)
	return f
}

// Visible holds the chain until the cell's element is visible.
func (f *Cell) Visible() *Cell {
	f.ic.c.state("visible", "")
	return f
}

// Hidden holds the chain until the cell's element is hidden.
func (f *Cell) Hidden() *Cell {
	f.ic.c.state("hidden", "")
	return f
}

// Text holds the chain until the cell's text equals want.
func (f *Cell) Text(want string) *Cell {
	f.ic.c.state("text", fmt.Sprintf("showing %q", want), want)
	return f
}

// TextLike holds the chain until the cell's text contains want.
func (f *Cell) TextLike(want string) *Cell {
	f.ic.c.state("textLike", fmt.Sprintf("showing text like %q", want), want)
	return f
}

// HasCls holds the chain until the cell's element carries the class.
func (f *Cell) HasCls(name string) *Cell {
	f.ic.c.state("hasCls", fmt.Sprintf("carrying class %q", name), name)
	return f
}

// And enqueues inspection steps; callbacks receive the resolved record.
func (f *Cell) And(steps ...AndStep) *Cell {
	f.ic.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Cell) Wait(steps ...WaitStep) *Cell {
	f.ic.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the cell's
// element matching selector.
func (f *Cell) Down(selector string) *Element {
	return f.ic.c.derive(selector, schemas.Down)
}
