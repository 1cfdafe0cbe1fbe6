package term

import (
	"strings"
	"sync"
	"time"
)

// Script is a scriptable in-memory terminal used by tests and dry runs.
// It records mode transitions and painted frames, and serves queued key
// bytes through the same decoder as the real terminal.
type Script struct {
	mu sync.Mutex

	pending []byte
	Modes   []string
	Frames  []string
	Directs []string

	Width  int
	Height int
}

func NewScript() *Script {
	return &Script{Width: 80, Height: 24}
}

// Type queues raw key bytes for PollKey to consume.
func (s *Script) Type(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, []byte(input)...)
}

func (s *Script) EnterRawMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Modes = append(s.Modes, "raw")
	return nil
}

func (s *Script) ExitRawMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Modes = append(s.Modes, "normal")
	return nil
}

func (s *Script) WriteFrame(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Frames = append(s.Frames, frame)
}

func (s *Script) WriteDirect(sequence string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Directs = append(s.Directs, sequence)
	s.Frames = append(s.Frames, sequence)
}

func (s *Script) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Width, s.Height
}

func (s *Script) PollKey(timeout time.Duration) (Key, error) {
	first, ok := s.takeByte()
	if !ok {
		return Key{Kind: KeyNone}, nil
	}
	key := decodeKey(first, func(time.Duration) (byte, bool) {
		return s.takeByte()
	})
	return key, nil
}

func (s *Script) takeByte() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0, false
	}
	b := s.pending[0]
	s.pending = s.pending[1:]
	return b, true
}

// Screen returns everything painted so far as one string.
func (s *Script) Screen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.Frames, "")
}
