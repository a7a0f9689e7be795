package cdphost

import (
	"encoding/json"
	"fmt"
)

// The host keeps found nodes in a page-side registry keyed by integer
// handles, so element wrappers can re-read live state without re-running the
// locator. The registry survives soft navigations only; a full load drops it
// and wrappers read back as detached.

// findScript resolves a locator inside the page. It mirrors the sim host's
// dialect: xpath for "/", "./", "(" shapes (down only), css otherwise, with
// up walking ancestors nearest-first and child scanning direct children.
func findScript(expr string, strict bool, rootHandle int64, dir string) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const expr = %s, strict = %t, dir = %s, rootH = %d;
	let scope = document;
	if (rootH) {
		scope = reg.nodes.get(rootH);
		if (!scope || !scope.isConnected) return { err: "locator root is detached" };
	}
	const isXPath = expr.startsWith("/") || expr.startsWith("./") || expr.startsWith("(");
	let matches = [];
	try {
		if (isXPath) {
			if (dir !== "down") return { err: "xpath locator cannot search " + dir + "; use axes instead" };
			const snap = document.evaluate(expr, scope, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			for (let i = 0; i < snap.snapshotLength; i++) {
				const n = snap.snapshotItem(i);
				if (n.nodeType === 1) matches.push(n);
			}
		} else if (dir === "up") {
			const start = scope.parentElement;
			const hit = start ? start.closest(expr) : null;
			if (hit) matches.push(hit);
		} else if (dir === "child") {
			for (const c of scope.children) if (c.matches(expr)) matches.push(c);
		} else {
			matches = Array.from(scope.querySelectorAll(expr));
		}
	} catch (e) {
		return { err: String(e) };
	}
	if (matches.length === 0) return null;
	if (strict && matches.length > 1) return { ambiguous: matches.length };
	const node = matches[0];
	const h = ++reg.seq;
	reg.nodes.set(h, node);
	return { handle: h, desc: node.id ? "#" + node.id : node.tagName.toLowerCase() };
})()`, jsonEncode(expr), strict, jsonEncode(dir), rootHandle)
}

// elemInfoScript reads one registered node's live state. Null means the
// handle is unknown to the page.
func elemInfoScript(handle int64) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	if (!node) return null;
	const attached = node.isConnected;
	let visible = false;
	if (attached) {
		const rect = node.getBoundingClientRect();
		const style = window.getComputedStyle(node);
		visible = rect.width > 0 && rect.height > 0 &&
			style.display !== "none" && style.visibility !== "hidden" && style.opacity !== "0";
	}
	return {
		attached: attached,
		visible: visible,
		text: (node.innerText || "").replace(/\s+/g, " ").trim(),
		desc: node.id ? "#" + node.id : node.tagName.toLowerCase(),
	};
})()`, handle)
}

func hasClassScript(handle int64, name string) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	return !!(node && node.classList && node.classList.contains(%s));
})()`, handle, jsonEncode(name))
}

func containsScript(outer, inner int64) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const a = reg.nodes.get(%d), b = reg.nodes.get(%d);
	return !!(a && b && a.contains(b));
})()`, outer, inner)
}

func releaseScript(handle int64) string {
	return fmt.Sprintf(`(() => {
	const reg = window.__orionReg;
	if (reg) reg.nodes.delete(%d);
	return true;
})()`, handle)
}

// clickPointScript scrolls the node into view and returns its viewport rect.
func clickPointScript(handle int64) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	if (!node || !node.isConnected) return null;
	if (node.scrollIntoViewIfNeeded) node.scrollIntoViewIfNeeded(true);
	else node.scrollIntoView({ block: "center", inline: "center" });
	const rect = node.getBoundingClientRect();
	return { left: rect.left, top: rect.top, width: rect.width, height: rect.height };
})()`, handle)
}

// focusScript moves real focus; blurScript removes it.
func focusScript(handle int64) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	if (!node) return false;
	node.focus();
	return true;
})()`, handle)
}

func blurScript(handle int64) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	if (!node) return false;
	node.blur();
	return true;
})()`, handle)
}

// fireScript dispatches a bubbling DOM event of the given type on the node.
func fireScript(handle int64, eventType string) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	if (!node) return false;
	node.dispatchEvent(new Event(%s, { bubbles: true }));
	return true;
})()`, handle, jsonEncode(eventType))
}

// caretScript positions the text cursor inside an input-like node.
func caretScript(handle int64, pos int) string {
	return fmt.Sprintf(`(() => {
	const reg = (window.__orionReg ||= { seq: 0, nodes: new Map() });
	const node = reg.nodes.get(%d);
	if (!node) return false;
	node.focus();
	if (node.setSelectionRange) node.setSelectionRange(%d, %d);
	return true;
})()`, handle, pos, pos)
}

const animScript = `(() => {
	if (!document.getAnimations) return false;
	return document.getAnimations().some(a => a.playState === "running");
})()`

// jsonEncode safely embeds a value into a script literal.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
