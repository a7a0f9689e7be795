// Package domhost is the in-process reference host: a parsed HTML document
// behind the schemas.Host surface. It resolves CSS and XPath locators,
// applies a small visibility vocabulary (hidden attribute, x-hidden class,
// inline display/visibility), records injected events, dispatches them to
// registered node listeners, and carries a widget registry so component
// futures have something real to resolve against. Scenario tests and
// embedding users mutate the page through it; there is no event-loop
// emulation and no bubbling.
package domhost

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

// Injection is one dispatched event, kept for assertions and transcripts.
type Injection struct {
	Event   schemas.EventRecord
	Target  string
	Related string
}

// Host implements schemas.Host over an in-memory HTML document.
type Host struct {
	log *zap.Logger

	mu    sync.RWMutex
	doc   *html.Node
	anims map[string]struct{}

	imu        sync.Mutex
	injections []Injection

	lmu       sync.Mutex
	listeners map[*html.Node]map[schemas.EventType]map[int]func(*schemas.EventRecord)
	nextLis   int

	wmu     sync.Mutex
	widgets []*Widget
	byNode  map[*html.Node]*Widget
}

var _ schemas.Host = (*Host)(nil)

// New parses src and returns a host over the resulting document.
func New(src string, log *zap.Logger) (*Host, error) {
	if log == nil {
		log = zap.NewNop()
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Host{
		log:       log.Named("domhost"),
		doc:       doc,
		anims:     make(map[string]struct{}),
		listeners: make(map[*html.Node]map[schemas.EventType]map[int]func(*schemas.EventRecord)),
		byNode:    make(map[*html.Node]*Widget),
	}, nil
}

// SetContent replaces the whole document. Wrappers over old nodes turn
// detached; locators re-resolve onto the new tree and rebind.
func (h *Host) SetContent(src string) error {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	h.mu.Lock()
	h.doc = doc
	h.mu.Unlock()
	h.log.Debug("document replaced")
	return nil
}

// Wrap returns an element wrapper for a raw node handle.
func (h *Host) Wrap(node any) schemas.Element {
	n, _ := node.(*html.Node)
	return &element{h: h, node: n}
}

// NodeOf resolves expr and returns the raw node handle, or nil. A test and
// scenario convenience over Find.
func (h *Host) NodeOf(expr string) any {
	n, err := h.Find(expr, false, nil, schemas.Down)
	if err != nil || n == nil {
		return nil
	}
	return n
}

// AnyActive reports whether any named animation is in flight.
func (h *Host) AnyActive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.anims) > 0
}

// BeginAnimation marks a named animation active.
func (h *Host) BeginAnimation(name string) {
	h.mu.Lock()
	h.anims[name] = struct{}{}
	h.mu.Unlock()
}

// EndAnimation clears a named animation.
func (h *Host) EndAnimation(name string) {
	h.mu.Lock()
	delete(h.anims, name)
	h.mu.Unlock()
}

// Inject records the event and hands it to listeners registered on the
// target node. Composite events never reach an injector; the player expands
// them first.
func (h *Host) Inject(ev *schemas.EventRecord, target, related schemas.Element) error {
	if ev == nil {
		return errors.New("inject: nil event")
	}
	if ev.Type.Composite() {
		return fmt.Errorf("inject: composite event %q reached the injector", ev.Type)
	}

	var node *html.Node
	targetDesc, relatedDesc := "", ""
	if target != nil {
		targetDesc = target.Describe()
		node, _ = target.Node().(*html.Node)
	}
	if related != nil {
		relatedDesc = related.Describe()
	}

	h.imu.Lock()
	h.injections = append(h.injections, Injection{Event: *ev, Target: targetDesc, Related: relatedDesc})
	h.imu.Unlock()

	h.log.Debug("event injected",
		zap.String("type", string(ev.Type)),
		zap.String("target", targetDesc))

	for _, fn := range h.listenersFor(node, ev.Type) {
		fn(ev)
	}
	return nil
}

// On registers a listener for events injected at the given node. There is
// no bubbling: only the exact target's listeners fire.
func (h *Host) On(node any, t schemas.EventType, fn func(*schemas.EventRecord)) (off func()) {
	n, ok := node.(*html.Node)
	if !ok || fn == nil {
		return func() {}
	}
	h.lmu.Lock()
	defer h.lmu.Unlock()
	byType, ok := h.listeners[n]
	if !ok {
		byType = make(map[schemas.EventType]map[int]func(*schemas.EventRecord))
		h.listeners[n] = byType
	}
	byID, ok := byType[t]
	if !ok {
		byID = make(map[int]func(*schemas.EventRecord))
		byType[t] = byID
	}
	h.nextLis++
	id := h.nextLis
	byID[id] = fn
	return func() {
		h.lmu.Lock()
		delete(byID, id)
		h.lmu.Unlock()
	}
}

// listenersFor snapshots the listeners of one node and type so dispatch runs
// without the lock.
func (h *Host) listenersFor(n *html.Node, t schemas.EventType) []func(*schemas.EventRecord) {
	if n == nil {
		return nil
	}
	h.lmu.Lock()
	defer h.lmu.Unlock()
	byID := h.listeners[n][t]
	if len(byID) == 0 {
		return nil
	}
	out := make([]func(*schemas.EventRecord), 0, len(byID))
	for _, fn := range byID {
		out = append(out, fn)
	}
	return out
}

// Injections returns a copy of every event injected so far.
func (h *Host) Injections() []Injection {
	h.imu.Lock()
	defer h.imu.Unlock()
	out := make([]Injection, len(h.injections))
	copy(out, h.injections)
	return out
}

// InjectedTypes returns the event types injected so far, in order.
func (h *Host) InjectedTypes() []schemas.EventType {
	h.imu.Lock()
	defer h.imu.Unlock()
	out := make([]schemas.EventType, len(h.injections))
	for i, in := range h.injections {
		out[i] = in.Event.Type
	}
	return out
}

// ResetInjections clears the injection log.
func (h *Host) ResetInjections() {
	h.imu.Lock()
	h.injections = nil
	h.imu.Unlock()
}

// Remove detaches a node from the document.
func (h *Host) Remove(node any) {
	n, ok := node.(*html.Node)
	if !ok || n == nil || n.Parent == nil {
		return
	}
	h.mu.Lock()
	n.Parent.RemoveChild(n)
	h.mu.Unlock()
}

// AppendHTML parses fragment in the context of the node matching parentExpr
// and appends the resulting nodes to it.
func (h *Host) AppendHTML(parentExpr, fragment string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	found, err := h.findLocked(parentExpr, false, nil, schemas.Down)
	if err != nil {
		return err
	}
	parent, _ := found.(*html.Node)
	if parent == nil {
		return fmt.Errorf("append: no node matches %q", parentExpr)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// SetAttr writes one attribute of a node, replacing any existing value.
func (h *Host) SetAttr(node any, key, val string) {
	n, ok := node.(*html.Node)
	if !ok || n == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setAttrLocked(n, key, val)
}

// RemoveAttr deletes one attribute of a node.
func (h *Host) RemoveAttr(node any, key string) {
	n, ok := node.(*html.Node)
	if !ok || n == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// AddClass adds a class to a node's class list.
func (h *Host) AddClass(node any, name string) {
	n, ok := node.(*html.Node)
	if !ok || n == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	cur := attrValue(n, "class")
	if classListHas(cur, name) {
		return
	}
	h.setAttrLocked(n, "class", strings.TrimSpace(cur+" "+name))
}

// RemoveClass removes a class from a node's class list.
func (h *Host) RemoveClass(node any, name string) {
	n, ok := node.(*html.Node)
	if !ok || n == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var kept []string
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c != name {
			kept = append(kept, c)
		}
	}
	h.setAttrLocked(n, "class", strings.Join(kept, " "))
}

// SetText replaces a node's children with a single text node.
func (h *Host) SetText(node any, text string) {
	n, ok := node.(*html.Node)
	if !ok || n == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (h *Host) setAttrLocked(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
