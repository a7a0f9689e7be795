package schemas

// Record is one data item of a collection-backed widget. IDs are opaque; the
// futures layer only compares them for equality.
type Record interface {
	// ID returns the record's unique identifier within its collection.
	ID() any
	// Get returns the value of one named field, or nil when absent.
	Get(field string) any
}

// Component is a widget instance of the host's component system. Element
// futures see the page through DOM; component futures see it through this.
type Component interface {
	// ID returns the component's unique identifier.
	ID() string
	// XType returns the component's registered type alias.
	XType() string
	// El returns the component's primary element, or nil before render.
	El() Element
	// Rendered reports whether the component has produced DOM.
	Rendered() bool
	// Destroyed reports whether the component has been torn down.
	Destroyed() bool
	// Get reads one named property of the component.
	Get(prop string) any
	// Set writes one named property through the component's own API, firing
	// whatever side effects the widget defines.
	Set(prop string, value any)
	// On subscribes fn to a named widget event and returns the matching
	// unsubscribe. Used by event-armed wait states.
	On(event string, fn func()) (off func())
}

// Collection extends Component for widgets that present a list of records:
// data views, lists, grids.
type Collection interface {
	Component

	// RecordCount returns the number of records currently held.
	RecordCount() int
	// RecordAt returns the record at index, reporting false when out of
	// range.
	RecordAt(index int) (Record, bool)
	// RecordByID returns the record with the given id.
	RecordByID(id any) (Record, bool)
	// RecordsWhere returns every record whose named field equals value.
	RecordsWhere(field string, value any) []Record
	// Records returns all records in presentation order.
	Records() []Record

	// NodeFor returns the raw DOM node rendering a record, reporting false
	// when the record is not currently rendered.
	NodeFor(r Record) (any, bool)

	// Selected returns the currently selected records.
	Selected() []Record
	// Select adds records to the selection; keepExisting false replaces it.
	Select(rs []Record, keepExisting bool)
	// Deselect removes records from the selection.
	Deselect(rs []Record)

	// Scroller returns the widget's scroller, or nil when it does not
	// scroll.
	Scroller() Scroller
}

// Grid extends Collection for tabular widgets with addressable columns.
type Grid interface {
	Collection

	// ColumnAt returns the column at visual index.
	ColumnAt(index int) (Column, bool)
	// ColumnByID returns the column with the given id.
	ColumnByID(id string) (Column, bool)
	// ColumnsWhere returns every column whose named property equals value.
	ColumnsWhere(prop string, value any) []Column

	// CellNode returns the raw DOM node of the cell at the record's row and
	// the given column.
	CellNode(r Record, c Column) (any, bool)
}

// Column describes one column of a Grid.
type Column interface {
	// ID returns the column's unique identifier.
	ID() string
	// DataIndex returns the record field the column renders.
	DataIndex() string
	// Index returns the column's visual position.
	Index() int
}

// Scroller moves a collection's viewport so a node becomes rendered and
// visible. Done fires when scrolling has settled; it may fire synchronously.
type Scroller interface {
	ScrollTo(node any, done func())
}

// ComponentSource resolves components of the host page. Hosts without a
// component system return false from both methods.
type ComponentSource interface {
	// ComponentFor returns the component owning el, walking up from the
	// element when el is inside the component's subtree.
	ComponentFor(el Element) (Component, bool)
	// FindComponent resolves a component query, scoped to root when non-nil
	// and oriented by dir.
	FindComponent(query string, root Component, dir Direction) (Component, bool)
}
