package domhost

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

// Widget is one component of the host's widget registry. It carries the
// property bag and event surface that component futures wait on; list and
// grid widgets build on it.
type Widget struct {
	h *Host

	id    string
	xtype string

	// self is the outermost component this widget backs. The registry hands
	// it out so a *ListWidget keeps its Collection surface when resolved
	// through ComponentFor or FindComponent.
	self schemas.Component

	mu        sync.Mutex
	parent    *Widget
	children  []*Widget
	node      *html.Node
	el        *element
	props     map[string]any
	listeners map[string]map[int]func()
	nextLis   int
	rendered  bool
	destroyed bool
}

var _ schemas.Component = (*Widget)(nil)

func newWidget(h *Host, id, xtype string) *Widget {
	return &Widget{
		h:         h,
		id:        id,
		xtype:     xtype,
		props:     make(map[string]any),
		listeners: make(map[string]map[int]func()),
	}
}

// NewWidget registers a plain component. It starts unrendered; bind it to
// the page with Render or RenderTo.
func (h *Host) NewWidget(id, xtype string) *Widget {
	w := newWidget(h, id, xtype)
	h.register(w, w)
	return w
}

func (h *Host) register(comp schemas.Component, w *Widget) {
	w.self = comp
	h.wmu.Lock()
	h.widgets = append(h.widgets, w)
	h.wmu.Unlock()
}

// ID returns the widget's identifier.
func (w *Widget) ID() string { return w.id }

// XType returns the widget's type alias.
func (w *Widget) XType() string { return w.xtype }

// El returns the widget's primary element, nil before render. One wrapper is
// kept and rebound across re-renders.
func (w *Widget) El() schemas.Element {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.node == nil {
		return nil
	}
	if w.el == nil {
		w.el = &element{h: w.h, node: w.node}
	}
	return w.el
}

// Rendered reports whether the widget is bound to a DOM node.
func (w *Widget) Rendered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rendered
}

// Destroyed reports whether the widget has been torn down.
func (w *Widget) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Get reads one property.
func (w *Widget) Get(prop string) any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.props[prop]
}

// Set writes one property and fires the widget event the property maps to:
// value and checked fire change, pressed fires toggle, collapsed fires
// expand or collapse, loaded fires load.
func (w *Widget) Set(prop string, value any) {
	w.mu.Lock()
	w.props[prop] = value
	w.mu.Unlock()
	for _, ev := range setEvents(prop, value) {
		w.fire(ev)
	}
}

// SetQuiet writes one property without firing events.
func (w *Widget) SetQuiet(prop string, value any) {
	w.mu.Lock()
	w.props[prop] = value
	w.mu.Unlock()
}

func setEvents(prop string, value any) []string {
	switch prop {
	case "value", "checked":
		return []string{"change"}
	case "pressed":
		return []string{"toggle"}
	case "collapsed":
		if b, _ := value.(bool); b {
			return []string{"collapse"}
		}
		return []string{"expand"}
	case "loaded":
		return []string{"load"}
	case "viewReady":
		return []string{"viewready"}
	}
	return nil
}

// On subscribes fn to a named widget event.
func (w *Widget) On(event string, fn func()) (off func()) {
	if fn == nil {
		return func() {}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	byID, ok := w.listeners[event]
	if !ok {
		byID = make(map[int]func())
		w.listeners[event] = byID
	}
	w.nextLis++
	id := w.nextLis
	byID[id] = fn
	return func() {
		w.mu.Lock()
		delete(byID, id)
		w.mu.Unlock()
	}
}

// fire invokes the listeners of one event outside the widget lock.
func (w *Widget) fire(event string) {
	w.mu.Lock()
	byID := w.listeners[event]
	fns := make([]func(), 0, len(byID))
	for _, fn := range byID {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// ListenerCount returns how many listeners one event currently has. Tests
// use it to verify armed waits unsubscribe.
func (w *Widget) ListenerCount(event string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners[event])
}

// Add makes child a child of w in the component tree.
func (w *Widget) Add(child *Widget) {
	w.mu.Lock()
	w.children = append(w.children, child)
	w.mu.Unlock()
	child.mu.Lock()
	child.parent = w
	child.mu.Unlock()
}

// Render binds the widget to the first node matching expr and fires render.
func (w *Widget) Render(expr string) error {
	found, err := w.h.Find(expr, false, nil, schemas.Down)
	if err != nil {
		return err
	}
	n, _ := found.(*html.Node)
	if n == nil {
		return fmt.Errorf("render %s: no node matches %q", w.id, expr)
	}
	w.RenderTo(n)
	return nil
}

// RenderTo binds the widget to a raw node handle and fires render. A
// re-render onto a different node rebinds the cached element wrapper.
func (w *Widget) RenderTo(node any) {
	n, ok := node.(*html.Node)
	if !ok || n == nil {
		return
	}
	w.mu.Lock()
	old := w.node
	w.node = n
	if w.el != nil {
		w.el.Rebind(n)
	}
	w.rendered = true
	w.mu.Unlock()

	w.h.wmu.Lock()
	if old != nil {
		delete(w.h.byNode, old)
	}
	w.h.byNode[n] = w
	w.h.wmu.Unlock()

	w.fire("render")
}

// Destroy tears the widget down: fires destroy, removes its node from the
// document and unbinds it from the registry.
func (w *Widget) Destroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.rendered = false
	n := w.node
	w.node = nil
	w.mu.Unlock()

	if n != nil {
		w.h.wmu.Lock()
		delete(w.h.byNode, n)
		w.h.wmu.Unlock()
		w.h.Remove(n)
	}
	w.fire("destroy")
}

// ComponentFor returns the widget owning el, walking up from the element's
// node until a widget-bound ancestor is found.
func (h *Host) ComponentFor(el schemas.Element) (schemas.Component, bool) {
	if el == nil {
		return nil, false
	}
	n, ok := el.Node().(*html.Node)
	if !ok || n == nil {
		return nil, false
	}

	h.mu.RLock()
	var chain []*html.Node
	for ; n != nil; n = n.Parent {
		chain = append(chain, n)
	}
	h.mu.RUnlock()

	h.wmu.Lock()
	defer h.wmu.Unlock()
	for _, cn := range chain {
		if w, ok := h.byNode[cn]; ok {
			return w.self, true
		}
	}
	return nil, false
}

// FindComponent resolves a component query: "#id" for an exact id, "xtype"
// for the first widget of that type, "xtype[prop=value]" to filter by a
// property. Root scopes the search through the component tree; dir orients
// it the same way element finds do.
func (h *Host) FindComponent(query string, root schemas.Component, dir schemas.Direction) (schemas.Component, bool) {
	q, err := parseComponentQuery(query)
	if err != nil {
		return nil, false
	}

	var rootW *Widget
	if root != nil {
		rootW = h.widgetOf(root)
		if rootW == nil {
			return nil, false
		}
	}

	if rootW != nil && dir == schemas.Up {
		for p := rootW.parentOf(); p != nil; p = p.parentOf() {
			if q.matches(p.self) {
				return p.self, true
			}
		}
		return nil, false
	}

	h.wmu.Lock()
	candidates := make([]*Widget, len(h.widgets))
	copy(candidates, h.widgets)
	h.wmu.Unlock()

	for _, w := range candidates {
		if w.Destroyed() || !q.matches(w.self) {
			continue
		}
		if rootW != nil && !inScope(w, rootW, dir) {
			continue
		}
		return w.self, true
	}
	return nil, false
}

func (h *Host) widgetOf(comp schemas.Component) *Widget {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	for _, w := range h.widgets {
		if w.self == comp {
			return w
		}
	}
	return nil
}

func (w *Widget) parentOf() *Widget {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.parent
}

func inScope(w, root *Widget, dir schemas.Direction) bool {
	switch dir {
	case schemas.DirectChild:
		return w.parentOf() == root
	default:
		for p := w.parentOf(); p != nil; p = p.parentOf() {
			if p == root {
				return true
			}
		}
		return false
	}
}

// componentQuery is a parsed component locator.
type componentQuery struct {
	id    string
	xtype string
	prop  string
	value string
}

func parseComponentQuery(query string) (componentQuery, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return componentQuery{}, fmt.Errorf("empty component query")
	}
	if rest, ok := strings.CutPrefix(q, "#"); ok {
		return componentQuery{id: rest}, nil
	}
	open := strings.IndexByte(q, '[')
	if open < 0 {
		return componentQuery{xtype: q}, nil
	}
	if !strings.HasSuffix(q, "]") {
		return componentQuery{}, fmt.Errorf("component query %q: missing ]", query)
	}
	cq := componentQuery{xtype: strings.TrimSpace(q[:open])}
	body := q[open+1 : len(q)-1]
	prop, value, ok := strings.Cut(body, "=")
	if !ok {
		return componentQuery{}, fmt.Errorf("component query %q: want [prop=value]", query)
	}
	cq.prop = strings.TrimSpace(prop)
	cq.value = strings.Trim(strings.TrimSpace(value), `"'`)
	return cq, nil
}

func (q componentQuery) matches(c schemas.Component) bool {
	if q.id != "" {
		return c.ID() == q.id
	}
	if q.xtype != "" && c.XType() != q.xtype {
		return false
	}
	if q.prop != "" {
		return fmt.Sprint(c.Get(q.prop)) == q.value
	}
	return true
}
