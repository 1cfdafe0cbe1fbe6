// Package term isolates platform terminal control behind a small
// interface so the dashboard loops stay testable. The real implementation
// owns raw mode and non-blocking keyboard polling; tests use Script.
package term

import "time"

// KeyKind classifies one decoded keystroke.
type KeyKind int

const (
	KeyNone KeyKind = iota // poll timeout, nothing pressed
	KeyRune
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyCtrlC
	KeyUnknown
)

// Key is a single decoded keystroke. Rune is set only for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Terminal is the contract between the dashboard and the tty. EnterRawMode
// and ExitRawMode form a scoped acquisition: every exit path must restore.
type Terminal interface {
	EnterRawMode() error
	ExitRawMode() error
	// PollKey waits up to timeout for a keystroke. Returns KeyNone on
	// timeout rather than blocking indefinitely.
	PollKey(timeout time.Duration) (Key, error)
	// WriteFrame emits one composed frame. Implementations must never
	// block the caller on a slow terminal; the frame is dropped instead.
	WriteFrame(frame string)
	// WriteDirect writes synchronously, bypassing the frame queue. For
	// restore sequences on exit paths, where dropping is not an option.
	WriteDirect(sequence string)
	Size() (width, height int)
}

// byteReader reads at most one byte within the timeout, reporting whether
// a byte arrived.
type byteReader func(timeout time.Duration) (byte, bool)

// decodeKey assembles a keystroke from the first byte, pulling up to two
// more bytes for ESC sequences. Unrecognized sequences return KeyUnknown
// instead of blocking.
func decodeKey(first byte, more byteReader) Key {
	switch first {
	case 0x03:
		return Key{Kind: KeyCtrlC}
	case '\r', '\n':
		return Key{Kind: KeyEnter}
	case 0x7f, 0x08:
		return Key{Kind: KeyBackspace}
	case 0x1b:
		return decodeEscape(more)
	}
	if first >= 0x20 && first < 0x7f {
		return Key{Kind: KeyRune, Rune: rune(first)}
	}
	return Key{Kind: KeyUnknown}
}

// escapeTimeout bounds how long a bare ESC waits for its sequence tail.
const escapeTimeout = 15 * time.Millisecond

func decodeEscape(more byteReader) Key {
	second, ok := more(escapeTimeout)
	if !ok {
		return Key{Kind: KeyEscape}
	}
	if second != '[' {
		return Key{Kind: KeyUnknown}
	}
	third, ok := more(escapeTimeout)
	if !ok {
		return Key{Kind: KeyUnknown}
	}
	switch third {
	case 'A':
		return Key{Kind: KeyUp}
	case 'B':
		return Key{Kind: KeyDown}
	case 'C':
		return Key{Kind: KeyRight}
	case 'D':
		return Key{Kind: KeyLeft}
	default:
		return Key{Kind: KeyUnknown}
	}
}
