package domhost

import (
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

// hiddenClass is the toolkit class that hides a node regardless of style.
const hiddenClass = "x-hidden"

// element wraps one *html.Node of the host document. Wrappers have identity:
// a locator that re-resolves to a replacement node rebinds the wrapper in
// place, so every holder observes the swap.
type element struct {
	h *Host

	mu   sync.Mutex
	node *html.Node
}

var _ schemas.Element = (*element)(nil)

func (e *element) current() *html.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.node
}

func (e *element) IsAttached() bool {
	e.h.mu.RLock()
	defer e.h.mu.RUnlock()
	return e.h.attached(e.current())
}

func (e *element) IsVisible() bool {
	e.h.mu.RLock()
	defer e.h.mu.RUnlock()
	n := e.current()
	if !e.h.attached(n) {
		return false
	}
	for ; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type == html.ElementNode && nodeHidden(n) {
			return false
		}
	}
	return true
}

func (e *element) Text() string {
	e.h.mu.RLock()
	defer e.h.mu.RUnlock()
	return nodeText(e.current())
}

func (e *element) HasClass(name string) bool {
	e.h.mu.RLock()
	defer e.h.mu.RUnlock()
	return hasClass(e.current(), name)
}

func (e *element) Contains(other schemas.Element) bool {
	if other == nil {
		return false
	}
	target, ok := other.Node().(*html.Node)
	if !ok {
		return false
	}
	e.h.mu.RLock()
	defer e.h.mu.RUnlock()
	self := e.current()
	for n := target; n != nil; n = n.Parent {
		if n == self {
			return true
		}
	}
	return false
}

func (e *element) Describe() string {
	e.h.mu.RLock()
	defer e.h.mu.RUnlock()
	return describeNode(e.current())
}

func (e *element) Node() any {
	return e.current()
}

func (e *element) Rebind(node any) {
	n, ok := node.(*html.Node)
	if !ok {
		return
	}
	e.mu.Lock()
	e.node = n
	e.mu.Unlock()
}

// attached reports whether n has a path to the document root. Callers hold
// the host lock.
func (h *Host) attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == h.doc {
			return true
		}
	}
	return false
}

// nodeHidden applies the host's visibility vocabulary to one node: the
// hidden attribute, the toolkit hidden class, and inline display/visibility.
func nodeHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "class":
			if classListHas(a.Val, hiddenClass) {
				return true
			}
		case "style":
			for _, d := range parseInlineStyle(a.Val) {
				if d.prop == "display" && d.value == "none" {
					return true
				}
				if d.prop == "visibility" && d.value == "hidden" {
					return true
				}
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func hasClass(n *html.Node, name string) bool {
	if n == nil {
		return false
	}
	return classListHas(attrValue(n, "class"), name)
}

func classListHas(classAttr, name string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == name {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func describeNode(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	if id := attrValue(n, "id"); id != "" {
		return "#" + id
	}
	return n.Data
}
