// Package screen owns the render loop: periodic ANSI repaints of the
// sticky header, body, and footer panels. Paint faults never crash the
// process; they are redirected to the recovery reporter and the loop
// keeps going.
package screen

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/pretty"
	"github.com/romainhaenni/numerai-cli/recovery"
	"github.com/romainhaenni/numerai-cli/term"
)

// pollStep bounds how long the loop sleeps before re-checking the
// force-render and running flags.
const pollStep = 50 * time.Millisecond

// Renderer drives the paint cycle against one terminal.
type Renderer struct {
	state    *dash.State
	terminal term.Terminal
	reporter *recovery.Reporter

	bar        progress.Model
	lastWidth  int
	lastHeight int
	painted    bool
	spinner    int
	lastSaved  time.Time
}

func NewRenderer(state *dash.State, terminal term.Terminal, reporter *recovery.Reporter) *Renderer {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(28), progress.WithoutPercentage())
	return &Renderer{
		state:    state,
		terminal: terminal,
		reporter: reporter,
		bar:      bar,
	}
}

// Loop paints until the dashboard shuts down, then restores the cursor.
// Cadence: refresh_interval while idle, active_refresh_interval while any
// stage runs, immediately on a render request.
func (r *Renderer) Loop() {
	defer r.cleanup()

	// while the screen is owned, log lines land in the event log instead
	// of being printed over the raw mode frame
	common.SetLogInterceptor(r.absorbLog)
	defer common.ClearLogInterceptor()

	for r.state.Running() {
		r.paintGuarded()

		interval := r.state.Config.RefreshInterval
		if r.state.Tracker.AnyActive() {
			interval = r.state.Config.ActiveRefreshInterval
		}
		deadline := time.Now().Add(interval)
		for r.state.Running() && time.Now().Before(deadline) {
			if r.state.ConsumeRenderRequest() {
				break
			}
			time.Sleep(pollStep)
		}
	}
	common.Trace("render loop exited")
}

// absorbLog redirects one intercepted log line into the event log.
// Returning true suppresses the normal stderr print.
func (r *Renderer) absorbLog(message string) bool {
	level := eventlog.LevelDebug
	switch {
	case strings.HasPrefix(message, "Fatal"), strings.HasPrefix(message, "Error"):
		level = eventlog.LevelError
	case strings.HasPrefix(message, "Warning"):
		level = eventlog.LevelWarn
	}
	r.state.Events.Append(level, message)
	return true
}

// paintGuarded is the per-frame fault boundary. A panic while composing
// or measuring becomes a recovery report, never a dead dashboard.
func (r *Renderer) paintGuarded() {
	defer func() {
		if reason := recover(); reason != nil {
			r.reporter.ReportPaintFault(reason)
		}
	}()
	r.paint()
}

func (r *Renderer) paint() {
	width, height := r.terminal.Size()
	snapshot := r.state.Snapshot()

	resized := width != r.lastWidth || height != r.lastHeight
	full := !r.painted || resized
	r.lastWidth, r.lastHeight = width, height
	r.spinner = (r.spinner + 1) % len(spinnerFrames)

	frame := r.compose(snapshot, width, height, full)
	r.terminal.WriteFrame(frame)
	r.painted = true

	r.recordLastGood(snapshot)
}

// recordLastGood writes the recovery snapshot after successful refreshes,
// throttled to the model update interval.
func (r *Renderer) recordLastGood(snapshot dash.Snapshot) {
	if time.Since(r.lastSaved) < r.state.Config.ModelUpdateInterval {
		return
	}
	r.lastSaved = time.Now()
	dash.RecordLastKnownGood(r.state)
}

// cleanup leaves the terminal usable on every exit path: cursor visible,
// cursor parked under the dashboard.
func (r *Renderer) cleanup() {
	_, height := r.terminal.Size()
	r.terminal.WriteDirect(pretty.ShowCursor() + pretty.MoveTo(height, 1) + pretty.ClearLine() + "\r\n")
}
