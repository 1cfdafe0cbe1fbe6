package term

import (
	"os"
	"sync"
	"time"

	xterm "golang.org/x/term"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/pretty"
)

// ANSI is the real terminal bound to stdin/stdout.
type ANSI struct {
	mu    sync.Mutex
	saved *xterm.State

	frames chan string
	done   chan struct{}
	once   sync.Once

	// keystroke pump, used on platforms without poll(2)
	input      chan byte
	readerOnce sync.Once
}

// NewANSI builds the terminal and starts its writer task. Frames are
// serialized through a small buffer; when the terminal cannot keep up the
// oldest pending frame is simply dropped.
func NewANSI() *ANSI {
	t := &ANSI{
		frames: make(chan string, 2),
		done:   make(chan struct{}),
		input:  make(chan byte, 32),
	}
	go t.writerLoop()
	return t
}

func (t *ANSI) writerLoop() {
	for frame := range t.frames {
		os.Stdout.WriteString(frame)
	}
	close(t.done)
}

// EnterRawMode switches stdin into raw mode, remembering the previous
// state for restoration. Safe to call once per acquisition.
func (t *ANSI) EnterRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saved != nil {
		return nil
	}
	saved, err := xterm.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	t.saved = saved
	return nil
}

// ExitRawMode restores the saved terminal state. Called on every exit
// path; restoring an already-restored terminal is a no-op.
func (t *ANSI) ExitRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saved == nil {
		return nil
	}
	err := xterm.Restore(int(os.Stdin.Fd()), t.saved)
	t.saved = nil
	return err
}

// WriteFrame queues a frame for the writer task, dropping it when the
// queue is full so the render loop never blocks on a slow terminal.
func (t *ANSI) WriteFrame(frame string) {
	select {
	case t.frames <- frame:
	default:
		common.Trace("frame dropped: terminal writer busy")
	}
}

// WriteDirect writes straight to stdout. Restore sequences go through
// here so a busy frame queue cannot swallow them.
func (t *ANSI) WriteDirect(sequence string) {
	os.Stdout.WriteString(sequence)
}

// Close flushes pending frames and stops the writer task.
func (t *ANSI) Close() {
	t.once.Do(func() {
		close(t.frames)
		<-t.done
	})
}

// Size returns terminal dimensions with an 80x24 fallback.
func (t *ANSI) Size() (int, int) {
	return pretty.TerminalSize()
}

// PollKey waits up to timeout for one keystroke, assembling multi-byte
// escape sequences with short follow-up polls.
func (t *ANSI) PollKey(timeout time.Duration) (Key, error) {
	first, ok, err := t.pollByte(timeout)
	if err != nil {
		return Key{}, err
	}
	if !ok {
		return Key{Kind: KeyNone}, nil
	}
	key := decodeKey(first, func(follow time.Duration) (byte, bool) {
		b, got, _ := t.pollByte(follow)
		return b, got
	})
	return key, nil
}
