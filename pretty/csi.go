package pretty

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/romainhaenni/numerai-cli/common"
)

// CSI (Control Sequence Introducer) helpers. Unlike direct terminal writes,
// these return the escape sequences as strings so a whole frame can be
// composed in memory and flushed with a single write. When the terminal is
// not interactive every sequence degrades to the empty string, leaving
// plain-text output intact.

func csi(value string) string {
	return "\x1b[" + value
}

func csif(form string, details ...interface{}) string {
	return csi(fmt.Sprintf(form, details...))
}

func guarded(sequence string) string {
	if !Interactive {
		return ""
	}
	return sequence
}

// SaveCursor saves the current cursor position (CSI s)
func SaveCursor() string {
	return guarded(csi("s"))
}

// RestoreCursor restores the previously saved cursor position (CSI u)
func RestoreCursor() string {
	return guarded(csi("u"))
}

// MoveTo moves cursor to row and column, both 1-indexed (CSI {row};{col}H)
func MoveTo(row, col int) string {
	return guarded(csif("%d;%dH", row, col))
}

// CursorHome moves the cursor to the top-left corner (CSI 1;1H)
func CursorHome() string {
	return guarded(csi("1;1H"))
}

// ClearLine clears the entire current line without moving the cursor (CSI 2K)
func ClearLine() string {
	return guarded(csi("2K"))
}

// ClearToEnd clears from cursor to end of line (CSI 0K)
func ClearToEnd() string {
	return guarded(csi("0K"))
}

// ClearScreen clears the entire screen (CSI 2J)
func ClearScreen() string {
	return guarded(csi("2J"))
}

// HideCursor makes the cursor invisible (CSI ?25l)
func HideCursor() string {
	return guarded(csi("?25l"))
}

// ShowCursor makes the cursor visible (CSI ?25h)
func ShowCursor() string {
	return guarded(csi("?25h"))
}

// TerminalSize returns terminal (width, height) with 80x24 fallback.
func TerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		common.Trace("Failed to get terminal size, using fallback: %v", err)
		return 80, 24
	}
	return width, height
}
