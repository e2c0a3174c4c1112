//go:build !headless

// debug_clipboard.go - clipboard-copy decorator for DebugModule
//
// License: GPLv3 or later

package modules

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// ClipboardDebug wraps a DebugModule, adding a Copy method that pushes
// a resolved symbol/location onto the system clipboard. Grounded on
// video_backend_ebiten.go's clipboard.Init() gating
// (sync.Once/clipboardOK bool) and its FmtText usage; mirrored in the
// opposite direction, since that teacher only ever reads the
// clipboard (paste-into-terminal) while a debugger's natural use is
// copying a disassembly line out.
type ClipboardDebug struct {
	DebugModule

	once sync.Once
	ok   bool
}

// NewClipboardDebug wraps inner, adding clipboard-copy support.
func NewClipboardDebug(inner DebugModule) *ClipboardDebug {
	return &ClipboardDebug{DebugModule: inner}
}

func (c *ClipboardDebug) init() bool {
	c.once.Do(func() { c.ok = clipboard.Init() == nil })
	return c.ok
}

// Copy resolves addr through the wrapped DebugModule and writes a
// human-readable "addr  symbol  file:line" line to the system
// clipboard, returning false if clipboard access is unavailable.
func (c *ClipboardDebug) Copy(addr uint32) bool {
	if !c.init() {
		return false
	}
	symbol, _ := c.FindSymbol(addr)
	loc, hasLoc := c.FindLocation(addr)

	line := fmt.Sprintf("%08X", addr)
	if symbol != "" {
		line += "  " + symbol
	}
	if hasLoc {
		line += fmt.Sprintf("  %s:%d", loc.File, loc.Line)
	}
	clipboard.Write(clipboard.FmtText, []byte(line))
	return true
}
