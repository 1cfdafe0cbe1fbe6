// Package input reads raw-mode keystrokes and dispatches them: instant
// single-key commands fire immediately, `/`-prefixed commands buffer until
// Enter. Long-running commands hand off to the orchestrator; this loop
// never blocks on stage completion.
package input

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/shlex"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/pipeline"
	"github.com/romainhaenni/numerai-cli/recovery"
	"github.com/romainhaenni/numerai-cli/term"
	"github.com/romainhaenni/numerai-cli/wizard"
)

// pollInterval bounds how long the dispatcher waits for one key before
// re-checking the running flag.
const pollInterval = 100 * time.Millisecond

// Dispatcher owns the keyboard for the lifetime of the dashboard.
type Dispatcher struct {
	state        *dash.State
	terminal     term.Terminal
	orchestrator *pipeline.Orchestrator
	reporter     *recovery.Reporter
}

func NewDispatcher(state *dash.State, terminal term.Terminal, orchestrator *pipeline.Orchestrator, reporter *recovery.Reporter) *Dispatcher {
	return &Dispatcher{
		state:        state,
		terminal:     terminal,
		orchestrator: orchestrator,
		reporter:     reporter,
	}
}

// Loop acquires raw mode for its whole lifetime and guarantees release on
// every exit path, fault or not.
func (d *Dispatcher) Loop() error {
	if err := d.terminal.EnterRawMode(); err != nil {
		return fmt.Errorf("cannot enter raw mode: %w", err)
	}
	defer func() {
		if err := d.terminal.ExitRawMode(); err != nil {
			// Best effort fallback: at least bring the cursor back.
			common.Fatal("terminal restore", err)
			d.terminal.WriteDirect("\x1b[?25h\x1b[0m\r\n")
		}
	}()

	for d.state.Running() {
		key, err := d.terminal.PollKey(pollInterval)
		if err != nil {
			common.Error("key poll", err)
			time.Sleep(pollInterval)
			continue
		}
		if key.Kind == term.KeyNone {
			continue
		}
		d.dispatch(key)
	}
	common.Trace("input dispatcher exited")
	return nil
}

func (d *Dispatcher) dispatch(key term.Key) {
	snapshot := d.state.Snapshot()
	switch {
	case snapshot.CommandMode:
		d.commandKey(key)
	case snapshot.Mode == dash.ModeWizard && snapshot.Wizard != nil:
		d.wizardKey(key)
	default:
		d.instantKey(key)
	}
}

// instantKey handles single keystrokes that act without Enter.
func (d *Dispatcher) instantKey(key term.Key) {
	if key.Kind == term.KeyCtrlC {
		d.quit()
		return
	}
	if key.Kind != term.KeyRune {
		return
	}
	switch key.Rune {
	case 'q':
		d.quit()
	case 'p':
		d.togglePause()
	case 'd':
		d.launch(d.orchestrator.StartDownload())
	case 't':
		snapshot := d.state.Snapshot()
		d.launch(d.orchestrator.StartTrain(snapshot.Model.Name, snapshot.Model.Epochs))
	case 'P':
		d.launch(d.orchestrator.StartPredict())
	case 's':
		d.launch(d.orchestrator.SubmitPending())
	case 'r':
		d.state.RequestRender()
	case 'h', '?':
		d.toggleMode(dash.ModeHelp)
	case 'm':
		d.toggleMode(dash.ModeModel)
	case 'L':
		d.toggleMode(dash.ModeLogs)
	case 'w':
		d.openWizard()
	case '/':
		d.state.Mutate(func(data *dash.Data) {
			data.CommandMode = true
			data.CommandBuffer = ""
		})
	}
}

// commandKey edits the buffered `/command` line.
func (d *Dispatcher) commandKey(key term.Key) {
	switch key.Kind {
	case term.KeyEscape, term.KeyCtrlC:
		d.state.Mutate(func(data *dash.Data) {
			data.CommandMode = false
			data.CommandBuffer = ""
		})
	case term.KeyBackspace:
		d.state.Mutate(func(data *dash.Data) {
			if len(data.CommandBuffer) > 0 {
				data.CommandBuffer = data.CommandBuffer[:len(data.CommandBuffer)-1]
			}
		})
	case term.KeyEnter:
		buffer := ""
		d.state.Mutate(func(data *dash.Data) {
			buffer = data.CommandBuffer
			data.CommandMode = false
			data.CommandBuffer = ""
		})
		d.execute(buffer)
	case term.KeyRune:
		d.state.Mutate(func(data *dash.Data) {
			data.CommandBuffer += string(key.Rune)
		})
	}
}

// wizardKey routes keystrokes into the live form.
func (d *Dispatcher) wizardKey(key term.Key) {
	done := false
	confirmed := false
	var result wizard.Result

	d.state.Mutate(func(data *dash.Data) {
		form := data.Wizard
		if form == nil {
			return
		}
		switch key.Kind {
		case term.KeyEscape, term.KeyCtrlC:
			form.Cancel()
		case term.KeyBackspace:
			form.Backspace()
		case term.KeyUp:
			form.Prev()
		case term.KeyEnter:
			form.Next()
		case term.KeyRune:
			form.Input(key.Rune)
		}
		if form.Done {
			done = true
			confirmed = form.Confirmed()
			result = form.Result()
			data.Wizard = nil
			data.Mode = dash.ModeOverview
		}
	})

	if !done {
		return
	}
	if confirmed {
		d.state.Events.Append(eventlog.LevelInfo, fmt.Sprintf("wizard: training %s for %d epochs", result.ModelName, result.Epochs))
		d.launch(d.orchestrator.StartTrain(result.ModelName, result.Epochs))
	} else {
		d.state.Events.Append(eventlog.LevelInfo, "wizard cancelled")
	}
}

// execute runs one buffered command line.
func (d *Dispatcher) execute(line string) {
	words, err := shlex.Split(line)
	if err != nil || len(words) == 0 {
		return
	}
	switch words[0] {
	case "quit", "q":
		d.quit()
	case "download":
		d.launch(d.orchestrator.StartDownload())
	case "train":
		snapshot := d.state.Snapshot()
		epochs := snapshot.Model.Epochs
		if len(words) > 1 {
			if parsed, err := strconv.Atoi(words[1]); err == nil {
				epochs = parsed
			}
		}
		d.launch(d.orchestrator.StartTrain(snapshot.Model.Name, epochs))
	case "predict":
		d.launch(d.orchestrator.StartPredict())
	case "submit":
		d.launch(d.orchestrator.SubmitPending())
	case "logs":
		count := 5
		if len(words) > 1 {
			if parsed, err := strconv.Atoi(words[1]); err == nil && parsed > 0 {
				count = parsed
			}
		}
		d.state.Mutate(func(data *dash.Data) {
			data.LogDetailCount = count
			data.Mode = dash.ModeLogs
		})
	case "diagnose":
		path, err := d.reporter.WriteFile(nil)
		if err != nil {
			d.state.Events.Append(eventlog.LevelError, "diagnose failed: "+err.Error())
			return
		}
		d.state.Events.Append(eventlog.LevelInfo, "recovery report written to "+path)
	case "help":
		d.toggleMode(dash.ModeHelp)
	default:
		d.state.Events.Append(eventlog.LevelWarn, "unknown command: /"+words[0])
	}
}

// launch reports the outcome of an asynchronous stage start. The stage
// itself runs in its own worker; AlreadyActive and precondition problems
// surface right away in the footer.
func (d *Dispatcher) launch(err error) {
	if err != nil {
		common.Debugf("stage start rejected: %v", err)
	}
}

func (d *Dispatcher) quit() {
	d.state.Events.Append(eventlog.LevelInfo, "shutting down")
	d.state.Shutdown()
	d.orchestrator.Stop()
}

func (d *Dispatcher) togglePause() {
	d.state.Mutate(func(data *dash.Data) {
		data.Paused = !data.Paused
		if data.Paused {
			d.state.Events.Append(eventlog.LevelInfo, "paused: background checks and auto-chaining on hold")
		} else {
			d.state.Events.Append(eventlog.LevelInfo, "resumed")
		}
	})
}

func (d *Dispatcher) toggleMode(mode dash.BodyMode) {
	d.state.Mutate(func(data *dash.Data) {
		if data.Mode == mode {
			data.Mode = dash.ModeOverview
		} else {
			data.Mode = mode
		}
	})
}

func (d *Dispatcher) openWizard() {
	snapshot := d.state.Snapshot()
	d.state.Mutate(func(data *dash.Data) {
		data.Wizard = wizard.NewSubmitForm(snapshot.Model.Name, snapshot.Model.Epochs)
		data.Mode = dash.ModeWizard
	})
}
