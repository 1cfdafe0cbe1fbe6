package input_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/romainhaenni/numerai-cli/config"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/hamlet"
	"github.com/romainhaenni/numerai-cli/input"
	"github.com/romainhaenni/numerai-cli/pipeline"
	"github.com/romainhaenni/numerai-cli/recovery"
	"github.com/romainhaenni/numerai-cli/term"
	"github.com/romainhaenni/numerai-cli/tournament"
	"github.com/romainhaenni/numerai-cli/tracking"
)

// scripted runs one dispatcher loop over typed key chunks. Chunks are
// typed with a pause in between so a bare ESC is not glued to the next
// key. The loop exits when the quit key is consumed, so the last chunk
// must end in one.
func scripted(t *testing.T, chunks ...string) (*dash.State, *term.Script) {
	t.Helper()
	cfg := &config.Config{
		RefreshInterval:       time.Second,
		ActiveRefreshInterval: 10 * time.Millisecond,
		ModelUpdateInterval:   time.Minute,
		NetworkCheckInterval:  time.Minute,
		NetworkTimeout:        time.Second,
		GraceDelay:            time.Millisecond,
		EventHistory:          100,
		ErrorHistory:          100,
		DefaultEpochs:         2,
		DataDir:               t.TempDir(),
		ModelName:             "example_model",
	}
	state := dash.New(cfg)
	script := term.NewScript()

	orchestrator := pipeline.NewOrchestrator(state, &tournament.Simulated{})
	dispatcher := input.NewDispatcher(state, script, orchestrator, recovery.New(state))

	done := make(chan error, 1)
	go func() { done <- dispatcher.Loop() }()
	for _, chunk := range chunks {
		script.Type(chunk)
		time.Sleep(25 * time.Millisecond)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("dispatcher failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher never consumed the quit key")
	}
	return state, script
}

func hasEvent(state *dash.State, fragment string) bool {
	for _, entry := range state.Events.All() {
		if strings.Contains(entry.Message, fragment) {
			return true
		}
	}
	return false
}

// stuckTerminal refuses to leave raw mode, forcing the restore fallback.
type stuckTerminal struct {
	*term.Script
}

func (s *stuckTerminal) ExitRawMode() error {
	return errors.New("tcsetattr failed")
}

func TestRestoreFallbackBypassesFrameQueue(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state := dash.New(&config.Config{
		EventHistory: 10,
		ErrorHistory: 10,
		DataDir:      t.TempDir(),
	})
	script := &stuckTerminal{term.NewScript()}
	orchestrator := pipeline.NewOrchestrator(state, &tournament.Simulated{})
	dispatcher := input.NewDispatcher(state, script, orchestrator, recovery.New(state))

	done := make(chan error, 1)
	go func() { done <- dispatcher.Loop() }()
	script.Type("q")
	select {
	case err := <-done:
		must.Nil(err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher never consumed the quit key")
	}

	must.Equal(1, len(script.Directs))
	must.True(strings.Contains(script.Directs[0], "\x1b[?25h"))
}

func TestQuitKeyStopsTheDashboard(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	state, script := scripted(t, "q")
	wont.True(state.Running())
	must.True(hasEvent(state, "shutting down"))

	// raw mode was acquired and released exactly once
	must.Equal([]string{"raw", "normal"}, script.Modes)
}

func TestCtrlCAlsoQuits(t *testing.T) {
	_, wont := hamlet.Specifications(t)

	state, _ := scripted(t, "\x03")
	wont.True(state.Running())
}

func TestBodyModeToggles(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state, _ := scripted(t, "hq")
	must.Equal(dash.ModeHelp, state.Snapshot().Mode)

	state, _ = scripted(t, "hhq")
	must.Equal(dash.ModeOverview, state.Snapshot().Mode)

	state, _ = scripted(t, "mq")
	must.Equal(dash.ModeModel, state.Snapshot().Mode)

	state, _ = scripted(t, "Lq")
	must.Equal(dash.ModeLogs, state.Snapshot().Mode)
}

func TestPauseToggle(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	state, _ := scripted(t, "pq")
	must.True(state.Snapshot().Paused)
	must.True(hasEvent(state, "paused"))

	state, _ = scripted(t, "ppq")
	wont.True(state.Snapshot().Paused)
	must.True(hasEvent(state, "resumed"))
}

func TestCommandModeEditingAndEscape(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	// escape abandons the buffer without executing anything
	state, _ := scripted(t, "/frob", "\x1b", "q")
	snapshot := state.Snapshot()
	wont.True(snapshot.CommandMode)
	must.Text("", snapshot.CommandBuffer)
	wont.True(hasEvent(state, "unknown command"))

	// backspace edits the buffer before execution
	state, _ = scripted(t, "/logs 3x\x7f\rq")
	snapshot = state.Snapshot()
	must.Equal(3, snapshot.LogDetailCount)
	must.Equal(dash.ModeLogs, snapshot.Mode)
}

func TestUnknownCommandIsReported(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state, _ := scripted(t, "/frobnicate\rq")
	must.True(hasEvent(state, "unknown command: /frobnicate"))
}

func TestDiagnoseCommandWritesReport(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state, _ := scripted(t, "/diagnose\rq")
	must.True(hasEvent(state, "recovery report written to"))
}

func TestDownloadKeyStartsTheStage(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	state, _ := scripted(t, "dq")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		op, _ := state.Tracker.Get(tracking.KindDownload)
		if op.Percent == 100 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	must.True(hasEvent(state, "download started"))
}

func TestWizardCancelAndConfirm(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	state, _ := scripted(t, "w", "\x1b", "q")
	snapshot := state.Snapshot()
	must.Equal(dash.ModeOverview, snapshot.Mode)
	must.Nil(snapshot.Wizard)
	must.True(hasEvent(state, "wizard cancelled"))

	// three Enters accept the prefilled defaults and confirm
	state, _ = scripted(t, "w\r\r\rq")
	snapshot = state.Snapshot()
	must.Nil(snapshot.Wizard)
	wont.True(snapshot.CommandMode)
	must.True(hasEvent(state, "wizard: training example_model for 2 epochs"))
}
