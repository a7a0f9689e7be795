package cdphost

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
)

// remoteElement wraps one registry handle. State reads go back to the page
// each time; a failing round trip reads as detached/hidden/empty, which the
// player treats as not-ready rather than fatal.
type remoteElement struct {
	h *Host

	mu     sync.Mutex
	handle int64
	desc   string
}

var _ schemas.Element = (*remoteElement)(nil)

// elemInfo is the wire shape of elemInfoScript's return value.
type elemInfo struct {
	Attached bool   `json:"attached"`
	Visible  bool   `json:"visible"`
	Text     string `json:"text"`
	Desc     string `json:"desc"`
}

func (e *remoteElement) info() *elemInfo {
	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()

	ctx, cancel := e.h.opCtx()
	defer cancel()

	var info *elemInfo
	if err := e.h.exec.Eval(ctx, elemInfoScript(handle), &info); err != nil {
		e.h.log.Debug("element read failed", zap.Int64("handle", handle), zap.Error(err))
		return nil
	}
	if info != nil && info.Desc != "" {
		e.mu.Lock()
		e.desc = info.Desc
		e.mu.Unlock()
	}
	return info
}

func (e *remoteElement) IsAttached() bool {
	info := e.info()
	return info != nil && info.Attached
}

func (e *remoteElement) IsVisible() bool {
	info := e.info()
	return info != nil && info.Visible
}

func (e *remoteElement) Text() string {
	info := e.info()
	if info == nil {
		return ""
	}
	return info.Text
}

func (e *remoteElement) HasClass(name string) bool {
	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()

	ctx, cancel := e.h.opCtx()
	defer cancel()

	var has bool
	if err := e.h.exec.Eval(ctx, hasClassScript(handle, name), &has); err != nil {
		e.h.log.Debug("class read failed", zap.Int64("handle", handle), zap.Error(err))
		return false
	}
	return has
}

func (e *remoteElement) Contains(other schemas.Element) bool {
	if other == nil {
		return false
	}
	inner, ok := other.Node().(int64)
	if !ok {
		return false
	}
	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()

	ctx, cancel := e.h.opCtx()
	defer cancel()

	var contains bool
	if err := e.h.exec.Eval(ctx, containsScript(handle, inner), &contains); err != nil {
		e.h.log.Debug("contains read failed", zap.Int64("handle", handle), zap.Error(err))
		return false
	}
	return contains
}

// Describe returns the last description the page reported, fetching one when
// the wrapper has never been read.
func (e *remoteElement) Describe() string {
	e.mu.Lock()
	desc := e.desc
	e.mu.Unlock()
	if desc != "" {
		return desc
	}
	if info := e.info(); info != nil {
		return info.Desc
	}
	return "<gone>"
}

func (e *remoteElement) Node() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// Rebind swaps the backing handle and releases the old registry entry.
func (e *remoteElement) Rebind(node any) {
	handle, ok := node.(int64)
	if !ok {
		return
	}
	e.mu.Lock()
	old := e.handle
	e.handle = handle
	e.desc = ""
	e.mu.Unlock()
	if old != 0 && old != handle {
		e.h.release(old)
	}
}
