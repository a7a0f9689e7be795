package domhost

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

// StaticRecord is an immutable record backed by a field map.
type StaticRecord struct {
	id     any
	fields map[string]any
}

var _ schemas.Record = (*StaticRecord)(nil)

// NewRecord builds a record from an id and alternating field/value pairs.
func NewRecord(id any, pairs ...any) *StaticRecord {
	r := &StaticRecord{id: id, fields: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("record %v: field name %v is not a string", id, pairs[i]))
		}
		r.fields[name] = pairs[i+1]
	}
	return r
}

// ID returns the record's identifier.
func (r *StaticRecord) ID() any { return r.id }

// Get returns one field's value, nil when absent.
func (r *StaticRecord) Get(field string) any { return r.fields[field] }

// ListWidget is a collection-backed widget: a data view, list or combo
// picker. Records render as descendant nodes carrying data-recid.
type ListWidget struct {
	*Widget

	cmu      sync.Mutex
	records  []schemas.Record
	selected map[any]bool
	scroller schemas.Scroller
}

var _ schemas.Collection = (*ListWidget)(nil)

// NewList registers a collection widget.
func (h *Host) NewList(id, xtype string) *ListWidget {
	lw := &ListWidget{Widget: newWidget(h, id, xtype), selected: make(map[any]bool)}
	h.register(lw, lw.Widget)
	return lw
}

// RecordCount returns the number of records currently held.
func (lw *ListWidget) RecordCount() int {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	return len(lw.records)
}

// RecordAt returns the record at index.
func (lw *ListWidget) RecordAt(index int) (schemas.Record, bool) {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	if index < 0 || index >= len(lw.records) {
		return nil, false
	}
	return lw.records[index], true
}

// RecordByID returns the record with the given id.
func (lw *ListWidget) RecordByID(id any) (schemas.Record, bool) {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	for _, r := range lw.records {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// RecordsWhere returns every record whose field equals value.
func (lw *ListWidget) RecordsWhere(field string, value any) []schemas.Record {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	var out []schemas.Record
	for _, r := range lw.records {
		if r.Get(field) == value {
			out = append(out, r)
		}
	}
	return out
}

// Records returns all records in presentation order.
func (lw *ListWidget) Records() []schemas.Record {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	out := make([]schemas.Record, len(lw.records))
	copy(out, lw.records)
	return out
}

// NodeFor returns the node rendering r: the first descendant of the widget
// node whose data-recid matches the record id.
func (lw *ListWidget) NodeFor(r schemas.Record) (any, bool) {
	if r == nil {
		return nil, false
	}
	lw.mu.Lock()
	root := lw.node
	lw.mu.Unlock()
	if root == nil {
		return nil, false
	}
	want := fmt.Sprint(r.ID())

	lw.h.mu.RLock()
	defer lw.h.mu.RUnlock()
	n := findByAttr(root, "data-recid", want)
	if n == nil {
		return nil, false
	}
	return n, true
}

// Selected returns the selected records in presentation order.
func (lw *ListWidget) Selected() []schemas.Record {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	var out []schemas.Record
	for _, r := range lw.records {
		if lw.selected[r.ID()] {
			out = append(out, r)
		}
	}
	return out
}

// Select adds records to the selection; keepExisting false replaces it.
// Fires selectionchange.
func (lw *ListWidget) Select(rs []schemas.Record, keepExisting bool) {
	lw.cmu.Lock()
	if !keepExisting {
		lw.selected = make(map[any]bool)
	}
	for _, r := range rs {
		lw.selected[r.ID()] = true
	}
	lw.cmu.Unlock()
	lw.fire("selectionchange")
}

// Deselect removes records from the selection. Fires selectionchange.
func (lw *ListWidget) Deselect(rs []schemas.Record) {
	lw.cmu.Lock()
	for _, r := range rs {
		delete(lw.selected, r.ID())
	}
	lw.cmu.Unlock()
	lw.fire("selectionchange")
}

// Scroller returns the widget's scroller, nil when it does not scroll.
func (lw *ListWidget) Scroller() schemas.Scroller {
	lw.cmu.Lock()
	defer lw.cmu.Unlock()
	return lw.scroller
}

// SetScroller installs the widget's scroller.
func (lw *ListWidget) SetScroller(s schemas.Scroller) {
	lw.cmu.Lock()
	lw.scroller = s
	lw.cmu.Unlock()
}

// SetRecords replaces the record set and fires datachanged. The selection is
// pruned to surviving ids.
func (lw *ListWidget) SetRecords(rs ...schemas.Record) {
	lw.cmu.Lock()
	lw.records = append([]schemas.Record(nil), rs...)
	keep := make(map[any]bool, len(lw.selected))
	for _, r := range lw.records {
		if lw.selected[r.ID()] {
			keep[r.ID()] = true
		}
	}
	lw.selected = keep
	lw.cmu.Unlock()
	lw.fire("datachanged")
}

// Load replaces the record set the way a store load would: datachanged,
// then loaded=true which fires load.
func (lw *ListWidget) Load(rs ...schemas.Record) {
	lw.SetRecords(rs...)
	lw.Set("loaded", true)
}

// FnScroller adapts a function to the scroller contract.
type FnScroller func(node any, done func())

func (f FnScroller) ScrollTo(node any, done func()) { f(node, done) }

// GridColumn is one column of a GridWidget.
type GridColumn struct {
	id        string
	dataIndex string
	index     int
	props     map[string]any
}

var _ schemas.Column = (*GridColumn)(nil)

// ID returns the column's identifier.
func (c *GridColumn) ID() string { return c.id }

// DataIndex returns the record field the column renders.
func (c *GridColumn) DataIndex() string { return c.dataIndex }

// Index returns the column's visual position.
func (c *GridColumn) Index() int { return c.index }

// Prop reads one column property: dataIndex, plus whatever AddColumn set.
func (c *GridColumn) Prop(name string) any {
	if name == "dataIndex" {
		return c.dataIndex
	}
	return c.props[name]
}

// GridWidget is a tabular collection with addressable columns. Cells render
// as descendants of the row node carrying data-col set to the column's
// dataIndex.
type GridWidget struct {
	*ListWidget

	gmu     sync.Mutex
	columns []*GridColumn
}

var _ schemas.Grid = (*GridWidget)(nil)

// NewGrid registers a grid widget.
func (h *Host) NewGrid(id, xtype string) *GridWidget {
	gw := &GridWidget{
		ListWidget: &ListWidget{Widget: newWidget(h, id, xtype), selected: make(map[any]bool)},
	}
	h.register(gw, gw.Widget)
	return gw
}

// AddColumn appends a column, assigning it the next visual index. Extra
// alternating name/value pairs become column properties.
func (gw *GridWidget) AddColumn(id, dataIndex string, pairs ...any) *GridColumn {
	c := &GridColumn{id: id, dataIndex: dataIndex, props: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("column %s: property name %v is not a string", id, pairs[i]))
		}
		c.props[name] = pairs[i+1]
	}
	gw.gmu.Lock()
	c.index = len(gw.columns)
	gw.columns = append(gw.columns, c)
	gw.gmu.Unlock()
	return c
}

// ColumnAt returns the column at visual index.
func (gw *GridWidget) ColumnAt(index int) (schemas.Column, bool) {
	gw.gmu.Lock()
	defer gw.gmu.Unlock()
	if index < 0 || index >= len(gw.columns) {
		return nil, false
	}
	return gw.columns[index], true
}

// ColumnByID returns the column with the given id.
func (gw *GridWidget) ColumnByID(id string) (schemas.Column, bool) {
	gw.gmu.Lock()
	defer gw.gmu.Unlock()
	for _, c := range gw.columns {
		if c.id == id {
			return c, true
		}
	}
	return nil, false
}

// ColumnsWhere returns every column whose property equals value.
func (gw *GridWidget) ColumnsWhere(prop string, value any) []schemas.Column {
	gw.gmu.Lock()
	defer gw.gmu.Unlock()
	var out []schemas.Column
	for _, c := range gw.columns {
		if c.Prop(prop) == value {
			out = append(out, c)
		}
	}
	return out
}

// CellNode returns the cell node at the record's row and the given column.
func (gw *GridWidget) CellNode(r schemas.Record, c schemas.Column) (any, bool) {
	raw, ok := gw.NodeFor(r)
	if !ok || c == nil {
		return nil, false
	}
	row := raw.(*html.Node)

	gw.h.mu.RLock()
	defer gw.h.mu.RUnlock()
	n := findByAttr(row, "data-col", c.DataIndex())
	if n == nil {
		return nil, false
	}
	return n, true
}

// findByAttr returns the first descendant of root (excluding root) whose
// attribute key equals val, in document order.
func findByAttr(root *html.Node, key, val string) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && attrValue(c, key) == val {
			return c
		}
		if n := findByAttr(c, key, val); n != nil {
			return n
		}
	}
	return nil
}
