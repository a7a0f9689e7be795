package domhost

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/sencha/orion-core/api/schemas"
)

// ErrAmbiguousLocator reports a strict find that matched more than one node.
var ErrAmbiguousLocator = errors.New("locator is ambiguous")

// Find resolves a locator expression. The dialect is chosen by shape:
// expressions starting with "/", "./" or "(" run as XPath, everything else
// as a CSS selector. A leading ">" scopes a CSS selector to the root's
// direct children regardless of dir. Up searches ancestors nearest-first
// and is CSS-only. Strict mode returns ErrAmbiguousLocator when the scoped
// search matches more than once.
func (h *Host) Find(expr string, strict bool, root schemas.Element, dir schemas.Direction) (any, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.findLocked(expr, strict, root, dir)
}

func (h *Host) findLocked(expr string, strict bool, root schemas.Element, dir schemas.Direction) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty locator")
	}
	if rest, ok := strings.CutPrefix(expr, ">"); ok {
		expr = strings.TrimSpace(rest)
		dir = schemas.DirectChild
	}

	scope := h.doc
	if root != nil {
		n, ok := root.Node().(*html.Node)
		if !ok || n == nil {
			return nil, fmt.Errorf("locator root is not a node of this host")
		}
		scope = n
	}

	if isXPath(expr) {
		return h.findXPath(expr, strict, scope, dir)
	}
	return h.findCSS(expr, strict, scope, dir)
}

// isXPath classifies an expression by shape.
func isXPath(expr string) bool {
	return strings.HasPrefix(expr, "/") ||
		strings.HasPrefix(expr, "./") ||
		strings.HasPrefix(expr, "(")
}

func (h *Host) findXPath(expr string, strict bool, scope *html.Node, dir schemas.Direction) (any, error) {
	if dir != schemas.Down {
		return nil, fmt.Errorf("xpath locator %q cannot search %s; use axes instead", expr, dir)
	}
	nodes, err := htmlquery.QueryAll(scope, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath locator %q: %w", expr, err)
	}
	return pickMatch(expr, strict, nodes)
}

func (h *Host) findCSS(expr string, strict bool, scope *html.Node, dir schemas.Direction) (any, error) {
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("css locator %q: %w", expr, err)
	}

	switch dir {
	case schemas.Up:
		for n := scope.Parent; n != nil; n = n.Parent {
			if n.Type == html.ElementNode && sel.Match(n) {
				return n, nil
			}
		}
		return nil, nil

	case schemas.DirectChild:
		var matches []*html.Node
		for c := scope.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && sel.Match(c) {
				matches = append(matches, c)
			}
		}
		return pickMatch(expr, strict, matches)

	default:
		matches := sel.MatchAll(scope)
		// MatchAll considers the scope node itself; a descendant search must
		// not.
		if len(matches) > 0 && matches[0] == scope {
			matches = matches[1:]
		}
		return pickMatch(expr, strict, matches)
	}
}

func pickMatch(expr string, strict bool, nodes []*html.Node) (any, error) {
	switch {
	case len(nodes) == 0:
		return nil, nil
	case strict && len(nodes) > 1:
		return nil, fmt.Errorf("%w: %q matched %d nodes", ErrAmbiguousLocator, expr, len(nodes))
	default:
		return nodes[0], nil
	}
}
