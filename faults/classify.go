// Package faults maps raw operation failures into categorized, operator
// friendly errors. Classification is a pure function over the fault text,
// so identical faults always land in the same bucket.
package faults

import (
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

type Category string

const (
	CategoryAPI        Category = "API"
	CategoryNetwork    Category = "NETWORK"
	CategoryAuth       Category = "AUTH"
	CategoryData       Category = "DATA"
	CategorySystem     Category = "SYSTEM"
	CategoryTimeout    Category = "TIMEOUT"
	CategoryValidation Category = "VALIDATION"
)

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) Icon(iconic bool) string {
	if !iconic {
		return s.String()[:1]
	}
	switch s {
	case SeverityLow:
		return "·"
	case SeverityMedium:
		return "▲"
	case SeverityHigh:
		return "✗"
	case SeverityCritical:
		return "‼"
	default:
		return "?"
	}
}

// Categorized is an expected operational failure with operator context.
type Categorized struct {
	Category  Category
	Severity  Severity
	Message   string
	Technical string
	When      time.Time
}

func (c *Categorized) Error() string {
	return c.Message
}

// Classify maps a fault to its category and severity. Typed network errors
// win over text sniffing; the rest is substring matching over the fault
// text, mirroring how operators read these messages.
func Classify(fault error) (Category, Severity) {
	if fault == nil {
		return CategorySystem, SeverityLow
	}

	var netErr net.Error
	if errors.As(fault, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout, SeverityMedium
		}
		return CategoryNetwork, SeverityHigh
	}
	if errors.Is(fault, os.ErrNotExist) || errors.Is(fault, os.ErrPermission) {
		return CategoryData, SeverityMedium
	}

	text := strings.ToLower(fault.Error())
	switch {
	case containsAny(text, "connection refused", "connection reset", "no such host", "network is unreachable", "broken pipe", "dns"):
		return CategoryNetwork, SeverityHigh
	case containsAny(text, "unauthorized", "forbidden", "invalid credentials", "api key", "authentication"):
		return CategoryAuth, SeverityCritical
	case containsAny(text, "timeout", "timed out", "deadline exceeded"):
		return CategoryTimeout, SeverityMedium
	case containsAny(text, "graphql", "api", "rate limit", "status 5", "bad gateway"):
		return CategoryAPI, SeverityMedium
	case containsAny(text, "invalid", "validation", "malformed", "out of range", "missing field"):
		return CategoryValidation, SeverityLow
	case containsAny(text, "no such file", "permission denied", "parquet", "corrupt", "checksum", "dataset"):
		return CategoryData, SeverityMedium
	default:
		return CategorySystem, SeverityMedium
	}
}

func containsAny(text string, fragments ...string) bool {
	for _, fragment := range fragments {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}

// FriendlyMessage renders a short operator-facing line for a category,
// refined by well-known fragments in the raw fault text.
func FriendlyMessage(category Category, raw string) string {
	lower := strings.ToLower(raw)
	switch category {
	case CategoryNetwork:
		return "Network connectivity problem: check connection and retry"
	case CategoryTimeout:
		return "Operation timed out: the tournament API may be slow right now"
	case CategoryAuth:
		if strings.Contains(lower, "invalid credentials") {
			return "Authentication failed: credentials were rejected, check NUMERAI_PUBLIC_ID and NUMERAI_SECRET_KEY"
		}
		return "Authentication failed: check API credentials"
	case CategoryAPI:
		if strings.Contains(lower, "model not found") {
			return "Tournament API error: model not found, check the configured model name"
		}
		if strings.Contains(lower, "rate limit") {
			return "Tournament API error: rate limited, wait before retrying"
		}
		return "Tournament API error: the request was rejected"
	case CategoryValidation:
		return "Validation problem: input was rejected before submission"
	case CategoryData:
		return "Data problem: a local dataset is missing or unreadable"
	default:
		return "Unexpected system error: see detailed logs"
	}
}

// Classifier wraps Classify with bounded history and per-category counters
// so the dashboard can show error trends.
type Classifier struct {
	mu      sync.Mutex
	history []*Categorized
	counts  map[Category]int
	limit   int
}

func NewClassifier(historyLimit int) *Classifier {
	if historyLimit < 1 {
		historyLimit = 1
	}
	return &Classifier{
		counts: make(map[Category]int),
		limit:  historyLimit,
	}
}

// Categorize classifies a fault, records it, and returns the result.
func (c *Classifier) Categorize(fault error) *Categorized {
	category, severity := Classify(fault)
	technical := ""
	if fault != nil {
		technical = fault.Error()
	}
	entry := &Categorized{
		Category:  category,
		Severity:  severity,
		Message:   FriendlyMessage(category, technical),
		Technical: technical,
		When:      time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[category] += 1
	c.history = append(c.history, entry)
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
	return entry
}

// Count returns the running total for one category.
func (c *Classifier) Count(category Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[category]
}

// TotalCount returns the running total across all categories.
func (c *Classifier) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, count := range c.counts {
		total += count
	}
	return total
}

// Recent returns the most recent n categorized errors, oldest first.
func (c *Classifier) Recent(n int) []*Categorized {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || len(c.history) == 0 {
		return nil
	}
	if n > len(c.history) {
		n = len(c.history)
	}
	result := make([]*Categorized, n)
	copy(result, c.history[len(c.history)-n:])
	return result
}

// Trend returns per-category counts of errors recorded within the window.
func (c *Classifier) Trend(window time.Duration) map[Category]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := time.Now().Add(-window)
	trend := make(map[Category]int)
	for _, entry := range c.history {
		if entry.When.After(cutoff) {
			trend[entry.Category] += 1
		}
	}
	return trend
}
