// Package eventlog keeps a bounded FIFO history of dashboard events.
package eventlog

import (
	"strings"
	"sync"
	"time"

	"github.com/romainhaenni/numerai-cli/faults"
)

// Level represents the severity of an event entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "OK"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "???"
	}
}

func (l Level) Icon(iconic bool) string {
	if !iconic {
		switch l {
		case LevelSuccess:
			return "+"
		case LevelWarn:
			return "!"
		case LevelError:
			return "x"
		default:
			return "-"
		}
	}
	switch l {
	case LevelDebug:
		return "·"
	case LevelInfo:
		return "●"
	case LevelSuccess:
		return "✓"
	case LevelWarn:
		return "▲"
	case LevelError:
		return "✗"
	default:
		return "?"
	}
}

// Entry is one immutable log line. Category and Severity are only set for
// entries born from a categorized failure.
type Entry struct {
	Time     time.Time
	Level    Level
	Category faults.Category
	Severity faults.Severity
	Message  string
}

// Categorized reports whether this entry carries error classification.
func (e Entry) Categorized() bool {
	return e.Category != ""
}

// Log is a thread-safe bounded FIFO buffer of entries. When capacity is
// exceeded the oldest entries are evicted first.
type Log struct {
	entries  []Entry
	maxSize  int
	mu       sync.RWMutex
	onChange func()
}

// New creates an event log holding at most maxSize entries.
func New(maxSize int) *Log {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Log{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
	}
}

// SetOnChange sets a callback invoked after each append.
func (l *Log) SetOnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Append adds an uncategorized entry.
func (l *Log) Append(level Level, message string) {
	l.push(Entry{
		Time:    time.Now(),
		Level:   level,
		Message: strings.TrimSpace(message),
	})
}

// AppendError adds an entry carrying error classification.
func (l *Log) AppendError(categorized *faults.Categorized) {
	if categorized == nil {
		return
	}
	l.push(Entry{
		Time:     time.Now(),
		Level:    LevelError,
		Category: categorized.Category,
		Severity: categorized.Severity,
		Message:  categorized.Message,
	})
}

func (l *Log) push(entry Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxSize {
		l.entries = l.entries[len(l.entries)-l.maxSize:]
	}
	notify := l.onChange
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Recent returns the n most recent entries, oldest first.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	result := make([]Entry, n)
	copy(result, l.entries[len(l.entries)-n:])
	return result
}

// All returns a copy of every retained entry, oldest first.
func (l *Log) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Entry, len(l.entries))
	copy(result, l.entries)
	return result
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear removes all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}
