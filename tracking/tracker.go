// Package tracking guards pipeline stages with a single-flight progress
// tracker: at most one running instance per operation kind, forward-only
// percentages, and generation checks that reject stale callbacks.
package tracking

import (
	"errors"
	"sync"
	"time"
)

// Kind identifies one trackable operation family.
type Kind string

const (
	KindDownload   Kind = "download"
	KindUpload     Kind = "upload"
	KindTraining   Kind = "training"
	KindPrediction Kind = "prediction"
)

// Kinds lists all operation kinds in display order.
func Kinds() []Kind {
	return []Kind{KindDownload, KindTraining, KindPrediction, KindUpload}
}

// ErrAlreadyActive signals a second start without intervening Complete/Fail.
var ErrAlreadyActive = errors.New("operation already active")

// Operation is the observable state of one kind.
type Operation struct {
	Kind       Kind
	Active     bool
	Generation uint64
	Percent    float64
	Note       string
	Current    int64
	Total      int64
	Unit       string
	Started    time.Time
	Updated    time.Time
}

// Tracker enforces the single-flight invariant for every kind.
type Tracker struct {
	mu         sync.RWMutex
	operations map[Kind]*Operation
	generation uint64
	onUpdate   func()
}

func New() *Tracker {
	operations := make(map[Kind]*Operation)
	for _, kind := range Kinds() {
		operations[kind] = &Operation{Kind: kind}
	}
	return &Tracker{operations: operations}
}

// SetOnUpdate sets a callback invoked after every accepted mutation.
func (t *Tracker) SetOnUpdate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

func (t *Tracker) notify() {
	if t.onUpdate != nil {
		t.onUpdate()
	}
}

// Start activates a kind and returns its generation token. Returns
// ErrAlreadyActive when a previous run has not reached Complete or Fail.
func (t *Tracker) Start(kind Kind, note string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.operations[kind]
	if !ok {
		return 0, errors.New("unknown operation kind: " + string(kind))
	}
	if op.Active {
		return 0, ErrAlreadyActive
	}

	t.generation += 1
	now := time.Now()
	*op = Operation{
		Kind:       kind,
		Active:     true,
		Generation: t.generation,
		Note:       note,
		Started:    now,
		Updated:    now,
	}
	t.notify()
	return t.generation, nil
}

// Update records progress for an active run. Percent is clamped to [0,100]
// and never moves backwards within a run. Updates for an inactive kind or a
// stale generation are discarded.
func (t *Tracker) Update(kind Kind, generation uint64, percent float64, note string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	op := t.operations[kind]
	if op == nil || !op.Active || op.Generation != generation {
		return false
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > op.Percent {
		op.Percent = percent
	}
	if note != "" {
		op.Note = note
	}
	op.Updated = time.Now()
	t.notify()
	return true
}

// SetCounters records granular progress counters (bytes, rows, epochs).
func (t *Tracker) SetCounters(kind Kind, generation uint64, current, total int64, unit string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	op := t.operations[kind]
	if op == nil || !op.Active || op.Generation != generation {
		return false
	}
	op.Current = current
	op.Total = total
	op.Unit = unit
	op.Updated = time.Now()
	t.notify()
	return true
}

// Complete finishes an active run at 100% and returns the kind to idle.
// Completing an idle kind is a no-op and returns false.
func (t *Tracker) Complete(kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	op := t.operations[kind]
	if op == nil || !op.Active {
		return false
	}
	op.Percent = 100
	op.Active = false
	op.Updated = time.Now()
	t.notify()
	return true
}

// Fail aborts an active run and returns the kind to idle.
func (t *Tracker) Fail(kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	op := t.operations[kind]
	if op == nil || !op.Active {
		return false
	}
	op.Active = false
	op.Updated = time.Now()
	t.notify()
	return true
}

// IsActive reports whether a kind currently has a running instance.
func (t *Tracker) IsActive(kind Kind) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op := t.operations[kind]
	return op != nil && op.Active
}

// AnyActive reports whether any kind has a running instance.
func (t *Tracker) AnyActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, op := range t.operations {
		if op.Active {
			return true
		}
	}
	return false
}

// Get returns a copy of the state of one kind.
func (t *Tracker) Get(kind Kind) (Operation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.operations[kind]
	if !ok {
		return Operation{}, false
	}
	return *op, true
}

// Active returns copies of all currently running operations, display order.
func (t *Tracker) Active() []Operation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]Operation, 0, len(t.operations))
	for _, kind := range Kinds() {
		if op := t.operations[kind]; op != nil && op.Active {
			result = append(result, *op)
		}
	}
	return result
}
