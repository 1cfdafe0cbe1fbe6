package cmd

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/input"
	"github.com/romainhaenni/numerai-cli/pipeline"
	"github.com/romainhaenni/numerai-cli/pretty"
	"github.com/romainhaenni/numerai-cli/recovery"
	"github.com/romainhaenni/numerai-cli/screen"
	"github.com/romainhaenni/numerai-cli/term"
	"github.com/romainhaenni/numerai-cli/tournament"
)

// probeTarget is the endpoint used for reachability checks.
const probeTarget = "api-tournament.numer.ai:443"

var simulatedPace time.Duration

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"dashboard", "ui"},
	Short:   "Open the live pipeline dashboard",
	Long: `Open the live pipeline dashboard.

Keys:
  d/t/P/s    Start download, training, prediction, submission
  p          Pause or resume background activity
  w          Submit wizard
  m          Model details
  h ?        Help
  /          Command mode (/train 100, /logs 20, /diagnose, /quit)
  q Ctrl-C   Quit

Example:
  numerai-cli run
  numerai-cli run --pace 50ms`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func runDashboard() error {
	pretty.Guard(pretty.Interactive, 1, "The dashboard requires an interactive terminal (TTY)")

	state := dash.New(cfg)
	terminal := term.NewANSI()
	defer terminal.Close()

	reporter := recovery.New(state)
	pipeline.PanicHook = func(reason interface{}) {
		reporter.ReportPaintFault(reason)
	}

	// last resort for panics escaping the main goroutine: restore the
	// terminal, write the recovery report once, and leave nonzero
	defer func() {
		reason := recover()
		if reason == nil {
			return
		}
		terminal.ExitRawMode()
		terminal.WriteDirect("\x1b[?25h\x1b[0m\r\n")
		path, err := reporter.ReportCrash(reason)
		if err != nil {
			pretty.Exit(2, "Fatal: %v (recovery report failed: %v)", reason, err)
		}
		pretty.Exit(2, "Fatal: %v (recovery report: %s)", reason, path)
	}()

	client := &tournament.Simulated{Pace: simulatedPace}
	orchestrator := pipeline.NewOrchestrator(state, client)
	defer orchestrator.Stop()

	// Ctrl-C inside raw mode arrives as a key, this covers SIGTERM and
	// signals delivered before raw mode is up.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		sig := <-signals
		common.Debugf("signal received: %v", sig)
		state.Shutdown()
		orchestrator.Stop()
	}()

	if previous, err := dash.LoadLastKnownGood(cfg.DataDir); err == nil {
		state.Mutate(func(data *dash.Data) {
			data.Model.Name = previous.ModelName
			data.Model.ValidationCorr = previous.ValidationCorr
			data.Model.Epochs = previous.Epochs
		})
		state.Events.Append(eventlog.LevelInfo, "restored last known good state from "+previous.Timestamp.Format("2006-01-02 15:04"))
	} else {
		common.Debugf("no prior state: %v", err)
	}

	go dash.HealthCheck(state, dash.TCPProbe(probeTarget))

	var painters sync.WaitGroup
	painters.Add(1)
	go func() {
		defer painters.Done()
		screen.NewRenderer(state, terminal, reporter).Loop()
	}()

	dispatcher := input.NewDispatcher(state, terminal, orchestrator, reporter)
	err := dispatcher.Loop()

	state.Shutdown()
	painters.Wait()
	return err
}

func init() {
	rootCmd.PersistentFlags().DurationVarP(&simulatedPace, "pace", "", 120*time.Millisecond, "simulated stage pace per progress step")
	rootCmd.AddCommand(runCmd)
}
