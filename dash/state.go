// Package dash owns the shared dashboard state. It is the only mutable
// resource crossing task boundaries: render loop, input dispatcher, stage
// workers, and the health checker all go through the accessor/mutator
// contract here.
package dash

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/romainhaenni/numerai-cli/config"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/faults"
	"github.com/romainhaenni/numerai-cli/tracking"
	"github.com/romainhaenni/numerai-cli/wizard"
)

// BodyMode selects what the body panel shows.
type BodyMode int

const (
	ModeOverview BodyMode = iota
	ModeHelp
	ModeModel
	ModeLogs
	ModeWizard
)

// ModelInfo describes the trained model as last observed.
type ModelInfo struct {
	Name           string
	Round          int
	LastSubmission string
	Epochs         int
	LossTail       []float64
	ValidationCorr float64
	TrainedAt      time.Time
}

// SystemMetrics is one health-check sample.
type SystemMetrics struct {
	CPUPercent      float64
	MemPercent      float64
	DiskFreePercent float64
	Goroutines      int
	SampledAt       time.Time
}

// NetworkStatus is the outcome of the most recent connectivity probe.
type NetworkStatus struct {
	Connected           bool
	LastCheck           time.Time
	LatencyMs           int64
	ConsecutiveFailures int
}

// Data is the mutable interior of the dashboard state. All access happens
// through State.Mutate and State.Snapshot.
type Data struct {
	Paused   bool
	Mode     BodyMode
	Model    ModelInfo
	Metrics  SystemMetrics
	Network  NetworkStatus
	Wizard   *wizard.Form
	Datasets map[string]bool

	// Command line state, painted in the footer by the render loop.
	CommandMode   bool
	CommandBuffer string

	// Detailed-log request made through the /logs command.
	LogDetailCount int
}

// Snapshot is a cheap display copy of Data plus pointers to the internally
// synchronized collaborators.
type Snapshot struct {
	Data
	Operations []tracking.Operation
	AnyActive  bool
}

// State is the aggregate root. Constructed once at startup, passed by
// reference into every task.
type State struct {
	mu   sync.Mutex
	data Data

	running     atomic.Bool
	forceRender atomic.Bool

	Config     *config.Config
	Tracker    *tracking.Tracker
	Events     *eventlog.Log
	Classifier *faults.Classifier
}

// New builds the dashboard state from resolved configuration.
func New(cfg *config.Config) *State {
	state := &State{
		Config:     cfg,
		Tracker:    tracking.New(),
		Events:     eventlog.New(cfg.EventHistory),
		Classifier: faults.NewClassifier(cfg.ErrorHistory),
		data: Data{
			Mode:     ModeOverview,
			Datasets: make(map[string]bool),
			Model:    ModelInfo{Name: cfg.ModelName, Epochs: cfg.DefaultEpochs},
		},
	}
	state.running.Store(true)
	state.Tracker.SetOnUpdate(state.RequestRender)
	state.Events.SetOnChange(state.RequestRender)
	return state
}

// Running reports whether the dashboard is still live. Every loop observes
// this within one poll interval and exits cleanly when it turns false.
func (s *State) Running() bool {
	return s.running.Load()
}

// Shutdown flips the running flag. Terminal restoration happens in the
// loops that own the terminal, never here.
func (s *State) Shutdown() {
	s.running.Store(false)
}

// RequestRender asks the render loop for an immediate repaint.
func (s *State) RequestRender() {
	s.forceRender.Store(true)
}

// ConsumeRenderRequest returns and clears the force-render flag.
func (s *State) ConsumeRenderRequest() bool {
	return s.forceRender.Swap(false)
}

// Mutate applies fn to the interior data under the state lock.
func (s *State) Mutate(fn func(*Data)) {
	s.mu.Lock()
	fn(&s.data)
	s.mu.Unlock()
	s.RequestRender()
}

// Snapshot copies the display data. The copy is consistent within itself;
// it may be one frame stale by the time it is painted, which is fine.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	data := s.data
	data.Datasets = make(map[string]bool, len(s.data.Datasets))
	for name, done := range s.data.Datasets {
		data.Datasets[name] = done
	}
	data.Model.LossTail = append([]float64(nil), s.data.Model.LossTail...)
	data.Wizard = s.data.Wizard.Clone()
	s.mu.Unlock()

	return Snapshot{
		Data:       data,
		Operations: s.Tracker.Active(),
		AnyActive:  s.Tracker.AnyActive(),
	}
}

// StartOperation begins a stage run under the single-flight guarantee and
// logs it. The returned generation token must accompany progress updates.
func (s *State) StartOperation(kind tracking.Kind, note string) (uint64, error) {
	generation, err := s.Tracker.Start(kind, note)
	if err != nil {
		s.Events.Append(eventlog.LevelWarn, fmt.Sprintf("%s already running, ignored", kind))
		return 0, err
	}
	s.Events.Append(eventlog.LevelInfo, fmt.Sprintf("%s started: %s", kind, note))
	return generation, nil
}

// UpdateProgress forwards a progress callback to the tracker. Stale or
// inactive updates are discarded silently.
func (s *State) UpdateProgress(kind tracking.Kind, generation uint64, percent float64, note string) {
	s.Tracker.Update(kind, generation, percent, note)
}

// CompleteOperation finishes a stage and emits its success event exactly
// once; completing an idle kind does nothing.
func (s *State) CompleteOperation(kind tracking.Kind) bool {
	if !s.Tracker.Complete(kind) {
		return false
	}
	s.Events.Append(eventlog.LevelSuccess, fmt.Sprintf("%s completed", kind))
	return true
}

// FailOperation classifies the fault, records it, and returns the stage to
// idle. The categorized error is returned for the caller's chain logic.
func (s *State) FailOperation(kind tracking.Kind, fault error) *faults.Categorized {
	if !s.Tracker.Fail(kind) {
		return nil
	}
	categorized := s.Classifier.Categorize(fault)
	s.Events.AppendError(categorized)
	return categorized
}
