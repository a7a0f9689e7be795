package future

import (
	"fmt"
	"strings"

	"github.com/sencha/orion-core/api/schemas"
	"github.com/sencha/orion-core/internal/player"
)

// Pick addresses records of a collection. Exactly one addressing mode is set;
// build with ByID, ByIndex, ByRange, ByRangeFrom, Where or All.
type Pick struct {
	ids     []any
	indexes []int
	isRange bool
	start   int
	end     int
	openEnd bool
	field   string
	hasQry  bool
	value   any
	all     bool
}

// ByID addresses records by their identifiers.
func ByID(ids ...any) Pick {
	return Pick{ids: ids}
}

// ByIndex addresses records by position.
func ByIndex(indexes ...int) Pick {
	return Pick{indexes: indexes}
}

// ByRange addresses the records from start through end, both inclusive.
func ByRange(start, end int) Pick {
	return Pick{isRange: true, start: start, end: end}
}

// ByRangeFrom addresses the records from start through the last available.
func ByRangeFrom(start int) Pick {
	return Pick{isRange: true, start: start, openEnd: true}
}

// Where addresses every record whose named field equals value.
func Where(field string, value any) Pick {
	return Pick{field: field, value: value, hasQry: true}
}

// All addresses every record.
func All() Pick {
	return Pick{all: true}
}

func (p Pick) String() string {
	switch {
	case p.ids != nil:
		return fmt.Sprintf("ids %v", p.ids)
	case p.indexes != nil:
		return fmt.Sprintf("indexes %v", p.indexes)
	case p.isRange && p.openEnd:
		return fmt.Sprintf("range %d..", p.start)
	case p.isRange:
		return fmt.Sprintf("range %d..%d", p.start, p.end)
	case p.hasQry:
		return fmt.Sprintf("%s=%v", p.field, p.value)
	case p.all:
		return "all"
	}
	return "nothing"
}

// resolve returns the records the pick addresses. ok is false when the
// collection cannot yet produce every requested record: a missing id or an
// out-of-range index short-circuits before any selection comparison runs.
// Query and all picks address whatever matches and never mismatch.
func (p Pick) resolve(coll schemas.Collection) (rs []schemas.Record, ok bool) {
	switch {
	case p.ids != nil:
		rs = make([]schemas.Record, 0, len(p.ids))
		for _, id := range p.ids {
			r, found := coll.RecordByID(id)
			if !found {
				return nil, false
			}
			rs = append(rs, r)
		}
		return rs, true

	case p.indexes != nil:
		rs = make([]schemas.Record, 0, len(p.indexes))
		for _, i := range p.indexes {
			r, found := coll.RecordAt(i)
			if !found {
				return nil, false
			}
			rs = append(rs, r)
		}
		return rs, true

	case p.isRange:
		end := p.end
		if p.openEnd {
			end = coll.RecordCount() - 1
			if end < p.start {
				// An open range past the data addresses nothing.
				return nil, true
			}
		}
		if p.start > end {
			return nil, false
		}
		rs = make([]schemas.Record, 0, end-p.start+1)
		for i := p.start; i <= end; i++ {
			r, found := coll.RecordAt(i)
			if !found {
				return nil, false
			}
			rs = append(rs, r)
		}
		return rs, true

	case p.hasQry:
		return coll.RecordsWhere(p.field, p.value), true

	case p.all:
		return coll.Records(), true
	}
	return nil, false
}

// recordIn reports whether the set contains the record, compared by id.
func recordIn(set []schemas.Record, r schemas.Record) bool {
	for _, s := range set {
		if valueEqual(s.ID(), r.ID()) {
			return true
		}
	}
	return false
}

// selectionHolds validates the current selection against the requested
// records. Select mode requires every requested record selected with matching
// counts; deselect mode requires none of them selected.
func selectionHolds(coll schemas.Collection, want []schemas.Record, deselect bool) bool {
	sel := coll.Selected()
	if deselect {
		for _, r := range want {
			if recordIn(sel, r) {
				return false
			}
		}
		return true
	}
	if len(sel) != len(want) {
		return false
	}
	for _, r := range want {
		if !recordIn(sel, r) {
			return false
		}
	}
	return true
}

// collection returns the future's component as a Collection, or nil.
func (c *core) collection() schemas.Collection {
	coll, _ := c.comp().(schemas.Collection)
	return coll
}

// grid returns the future's component as a Grid, or nil.
func (c *core) grid() schemas.Grid {
	g, _ := c.comp().(schemas.Grid)
	return g
}

// pickApply enqueues the selection change. The playable holds until every
// requested record resolves, applies the change through the widget API
// exactly once, and completes.
func (c *core) pickApply(p Pick, deselect bool) {
	verb := "select"
	if deselect {
		verb = "deselect"
	}
	applied := false
	c.enqueue(player.NewPredicate(func(probe *player.ReadyProbe) bool {
		if applied {
			return true
		}
		coll := c.collection()
		if coll == nil {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", c.class, c.describe()), "a collection")
			return false
		}
		want, ok := p.resolve(coll)
		if !ok {
			probe.SetWaiting(fmt.Sprintf("records (%s)", p), "available to "+verb)
			return false
		}
		if deselect {
			coll.Deselect(want)
		} else {
			coll.Select(want, false)
		}
		applied = true
		return true
	}, player.WithTimeout(c.timeout)))
}

// pickState enqueues the selection wait. The validator re-runs on every drain
// tick against the live selection set.
func (c *core) pickState(p Pick, deselect bool) {
	tag := "selected"
	if deselect {
		tag = "deselected"
	}
	c.enqueue(player.NewPredicate(func(probe *player.ReadyProbe) bool {
		coll := c.collection()
		if coll == nil {
			probe.SetWaiting(fmt.Sprintf("%s (%s)", c.class, c.describe()), "a collection")
			return false
		}
		want, ok := p.resolve(coll)
		if !ok {
			probe.SetWaiting(fmt.Sprintf("records (%s)", p), "present")
			return false
		}
		if selectionHolds(coll, want, deselect) {
			return true
		}
		probe.SetWaiting(fmt.Sprintf("records (%s)", p), tag)
		return false
	}, player.WithTimeout(c.timeout)))
}

// List is a future over a list-like collection widget: data views, lists,
// trees without columns.
type List struct {
	c *core
}

// List builds a future over the first collection component matching query.
func (d *Driver) List(query string, opts ...Option) *List {
	return &List{c: d.compQueryCore(classList, query, opts)}
}

// Resolved returns the collection resolved so far, or nil.
func (f *List) Resolved() schemas.Collection {
	return f.c.collection()
}

// Loaded holds the chain until the collection reports its data loaded.
func (f *List) Loaded() *List {
	f.c.state("loaded", "")
	return f
}

// Count holds the chain until the collection holds exactly n records.
func (f *List) Count(n int) *List {
	f.c.state("count", fmt.Sprintf("holding %d records", n), n)
	return f
}

// Visible holds the chain until the list's element is visible.
func (f *List) Visible() *List {
	f.c.state("visible", "")
	return f
}

// Hidden holds the chain until the list's element is hidden.
func (f *List) Hidden() *List {
	f.c.state("hidden", "")
	return f
}

// Select replaces the selection with the records the pick addresses. The
// playable holds until every requested record resolves.
func (f *List) Select(p Pick) *List {
	f.c.pickApply(p, false)
	return f
}

// Deselect removes the records the pick addresses from the selection.
func (f *List) Deselect(p Pick) *List {
	f.c.pickApply(p, true)
	return f
}

// Selected holds the chain until exactly the records the pick addresses are
// selected.
func (f *List) Selected(p Pick) *List {
	f.c.pickState(p, false)
	return f
}

// Deselected holds the chain until none of the records the pick addresses is
// selected.
func (f *List) Deselected(p Pick) *List {
	f.c.pickState(p, true)
	return f
}

// ItemAt returns a future over the item rendering the record at index.
func (f *List) ItemAt(index int) *Item {
	return newItem(f, recordLocator{byIndex: true, index: index})
}

// ItemByID returns a future over the item rendering the record with id.
func (f *List) ItemByID(id any) *Item {
	return newItem(f, recordLocator{byID: true, id: id})
}

// ItemWhere returns a future over the item rendering the first record whose
// named field equals value.
func (f *List) ItemWhere(field string, value any) *Item {
	return newItem(f, recordLocator{field: field, value: value})
}

// And enqueues inspection steps; callbacks receive the resolved component.
func (f *List) And(steps ...AndStep) *List {
	f.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *List) Wait(steps ...WaitStep) *List {
	f.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the list's
// element matching selector.
func (f *List) Down(selector string) *Element {
	return f.c.derive(selector, schemas.Down)
}

// Grid is a future over a tabular collection widget with addressable
// columns.
type Grid struct {
	c *core
}

// Grid builds a future over the first grid component matching query.
func (d *Driver) Grid(query string, opts ...Option) *Grid {
	return &Grid{c: d.compQueryCore(classGrid, query, opts)}
}

// Resolved returns the grid resolved so far, or nil.
func (f *Grid) Resolved() schemas.Grid {
	return f.c.grid()
}

// Loaded holds the chain until the grid reports its data loaded.
func (f *Grid) Loaded() *Grid {
	f.c.state("loaded", "")
	return f
}

// Count holds the chain until the grid holds exactly n records.
func (f *Grid) Count(n int) *Grid {
	f.c.state("count", fmt.Sprintf("holding %d records", n), n)
	return f
}

// Visible holds the chain until the grid's element is visible.
func (f *Grid) Visible() *Grid {
	f.c.state("visible", "")
	return f
}

// Hidden holds the chain until the grid's element is hidden.
func (f *Grid) Hidden() *Grid {
	f.c.state("hidden", "")
	return f
}

// Select replaces the selection with the records the pick addresses.
func (f *Grid) Select(p Pick) *Grid {
	f.c.pickApply(p, false)
	return f
}

// Deselect removes the records the pick addresses from the selection.
func (f *Grid) Deselect(p Pick) *Grid {
	f.c.pickApply(p, true)
	return f
}

// Selected holds the chain until exactly the records the pick addresses are
// selected.
func (f *Grid) Selected(p Pick) *Grid {
	f.c.pickState(p, false)
	return f
}

// Deselected holds the chain until none of the records the pick addresses is
// selected.
func (f *Grid) Deselected(p Pick) *Grid {
	f.c.pickState(p, true)
	return f
}

// RowAt returns a future over the row rendering the record at index.
func (f *Grid) RowAt(index int) *Row {
	return newRow(f, recordLocator{byIndex: true, index: index})
}

// RowByID returns a future over the row rendering the record with id.
func (f *Grid) RowByID(id any) *Row {
	return newRow(f, recordLocator{byID: true, id: id})
}

// RowWhere returns a future over the row rendering the first record whose
// named field equals value.
func (f *Grid) RowWhere(field string, value any) *Row {
	return newRow(f, recordLocator{field: field, value: value})
}

// And enqueues inspection steps; callbacks receive the resolved component.
func (f *Grid) And(steps ...AndStep) *Grid {
	f.c.and(steps)
	return f
}

// Wait enqueues delays and labelled predicates.
func (f *Grid) Wait(steps ...WaitStep) *Grid {
	f.c.wait(steps)
	return f
}

// Down returns an element future over the first descendant of the grid's
// element matching selector.
func (f *Grid) Down(selector string) *Element {
	return f.c.derive(selector, schemas.Down)
}

// recordLocator addresses one record of a collection: by position, by id, or
// by the first match of a field query.
type recordLocator struct {
	byIndex bool
	index   int
	byID    bool
	id      any
	field   string
	value   any
}

func (rl recordLocator) String() string {
	switch {
	case rl.byIndex:
		return fmt.Sprintf("index %d", rl.index)
	case rl.byID:
		return fmt.Sprintf("id %v", rl.id)
	}
	return fmt.Sprintf("%s=%v", rl.field, rl.value)
}

// find locates the record and its presentation index.
func (rl recordLocator) find(coll schemas.Collection) (schemas.Record, int, bool) {
	if rl.byIndex {
		r, ok := coll.RecordAt(rl.index)
		return r, rl.index, ok
	}
	for i, r := range coll.Records() {
		if rl.byID {
			if valueEqual(r.ID(), rl.id) {
				return r, i, true
			}
			continue
		}
		if valueEqual(r.Get(rl.field), rl.value) {
			return r, i, true
		}
	}
	return nil, 0, false
}

// columnLocator addresses one column of a grid: by visual index, by id, or
// by the first match of a property query.
type columnLocator struct {
	byIndex bool
	index   int
	byID    bool
	id      string
	prop    string
	value   any
}

func (cl columnLocator) String() string {
	switch {
	case cl.byIndex:
		return fmt.Sprintf("column %d", cl.index)
	case cl.byID:
		return fmt.Sprintf("column %s", cl.id)
	}
	return fmt.Sprintf("column %s=%v", cl.prop, cl.value)
}

// find locates the column on the grid.
func (cl columnLocator) find(g schemas.Grid) (schemas.Column, bool) {
	switch {
	case cl.byIndex:
		return g.ColumnAt(cl.index)
	case cl.byID:
		return g.ColumnByID(cl.id)
	}
	cols := g.ColumnsWhere(cl.prop, cl.value)
	if len(cols) == 0 {
		return nil, false
	}
	return cols[0], true
}

// joinDesc builds the locator description of a nested future, e.g.
// "#grid / id 42 / column name".
func joinDesc(parts ...string) string {
	return strings.Join(parts, " / ")
}
