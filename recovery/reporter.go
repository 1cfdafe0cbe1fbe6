// Package recovery produces the full diagnostic dump used when rendering
// or an operation has already failed. Every sub-probe carries its own
// fault boundary: a broken probe prints its failure and the report
// continues, because this code runs inside an already-failing path.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	ps "github.com/mitchellh/go-ps"
	"gopkg.in/yaml.v2"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/faults"
)

// Reporter renders diagnostic reports from dashboard state.
type Reporter struct {
	State *dash.State
}

func New(state *dash.State) *Reporter {
	return &Reporter{State: state}
}

// probe runs one report section inside its own fault boundary.
func probe(out *strings.Builder, title string, body func(*strings.Builder)) {
	fmt.Fprintf(out, "== %s\n", title)
	defer func() {
		if reason := recover(); reason != nil {
			fmt.Fprintf(out, "  (probe failed: %v)\n", reason)
		}
		out.WriteString("\n")
	}()
	body(out)
}

// Report produces the full diagnostic text for a fault. A nil fault
// produces the same dump for the explicit diagnostic command.
func (r *Reporter) Report(fault error) string {
	out := &strings.Builder{}
	fmt.Fprintf(out, "numerai-cli recovery report, %s\n\n", time.Now().Format(time.RFC3339))

	snapshot := r.State.Snapshot()

	probe(out, "Error", func(out *strings.Builder) {
		if fault == nil {
			out.WriteString("  no active fault, explicit diagnostic request\n")
			return
		}
		category, severity := faults.Classify(fault)
		fmt.Fprintf(out, "  %s\n", fault.Error())
		fmt.Fprintf(out, "  category: %s, severity: %s\n", category, severity)
		fmt.Fprintf(out, "  operator message: %s\n", faults.FriendlyMessage(category, fault.Error()))
	})

	probe(out, "System", func(out *strings.Builder) {
		metrics := dash.SampleMetrics(r.State.Config.DataDir)
		fmt.Fprintf(out, "  cpu: %.1f%%, memory: %.1f%%, disk free: %.1f%%\n",
			metrics.CPUPercent, metrics.MemPercent, metrics.DiskFreePercent)
		fmt.Fprintf(out, "  goroutines: %d, cpus: %d, uptime: %s\n",
			runtime.NumGoroutine(), runtime.NumCPU(), common.Uptime().Round(time.Second))
		processes, err := ps.Processes()
		if err == nil {
			fmt.Fprintf(out, "  processes on host: %d\n", len(processes))
			if self, err := ps.FindProcess(os.Getpid()); err == nil && self != nil {
				if parent, err := ps.FindProcess(self.PPid()); err == nil && parent != nil {
					fmt.Fprintf(out, "  parent process: %s (pid %d)\n", parent.Executable(), parent.Pid())
				}
			}
		}
	})

	probe(out, "Configuration", func(out *strings.Builder) {
		cfg := r.State.Config
		status := map[string]interface{}{
			"data_dir":                  cfg.DataDir,
			"data_dir_exists":           directoryExists(cfg.DataDir),
			"model_name":                cfg.ModelName,
			"refresh_interval":          cfg.RefreshInterval.String(),
			"network_check_interval":    cfg.NetworkCheckInterval.String(),
			"auto_train_after_download": cfg.AutoTrainAfterDownload,
			"auto_predict_after_train":  cfg.AutoPredictAfterTrain,
			"auto_submit_after_predict": cfg.AutoSubmitAfterPredict,
			"public_id":                 maskedPresence(os.Getenv("NUMERAI_PUBLIC_ID")),
			"secret_key":                maskedPresence(os.Getenv("NUMERAI_SECRET_KEY")),
		}
		blob, err := yaml.Marshal(status)
		if err != nil {
			panic(err)
		}
		for _, line := range strings.Split(strings.TrimRight(string(blob), "\n"), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	})

	probe(out, "Local data files", func(out *strings.Builder) {
		entries, err := os.ReadDir(r.State.Config.DataDir)
		if err != nil {
			fmt.Fprintf(out, "  cannot list %s: %v\n", r.State.Config.DataDir, err)
			return
		}
		if len(entries) == 0 {
			out.WriteString("  (empty)\n")
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				fmt.Fprintf(out, "  %s (unreadable)\n", entry.Name())
				continue
			}
			fmt.Fprintf(out, "  %s  %s  %s\n", entry.Name(), humanize.IBytes(uint64(info.Size())), info.ModTime().Format("2006-01-02 15:04"))
		}
	})

	probe(out, "Last known good state", func(out *strings.Builder) {
		lastGood, err := dash.LoadLastKnownGood(r.State.Config.DataDir)
		if err != nil {
			fmt.Fprintf(out, "  no prior state (%v)\n", err)
			return
		}
		fmt.Fprintf(out, "  recorded: %s\n", lastGood.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(out, "  model: %s, validation corr: %.4f, epochs: %d\n",
			lastGood.ModelName, lastGood.ValidationCorr, lastGood.Epochs)
		fmt.Fprintf(out, "  network connected: %v, api latency: %dms\n",
			lastGood.NetworkConnected, lastGood.APILatencyMs)
	})

	probe(out, "Network", func(out *strings.Builder) {
		network := snapshot.Network
		fmt.Fprintf(out, "  connected: %v, latency: %dms, consecutive failures: %d\n",
			network.Connected, network.LatencyMs, network.ConsecutiveFailures)
		if !network.LastCheck.IsZero() {
			fmt.Fprintf(out, "  last check: %s\n", network.LastCheck.Format(time.RFC3339))
		}
		for _, entry := range r.State.Events.All() {
			if entry.Category == faults.CategoryNetwork || entry.Category == faults.CategoryTimeout {
				fmt.Fprintf(out, "  %s %s\n", entry.Time.Format("15:04:05"), entry.Message)
			}
		}
	})

	probe(out, "Suggestions", func(out *strings.Builder) {
		for _, suggestion := range suggestions(fault, snapshot) {
			fmt.Fprintf(out, "  - %s\n", suggestion)
		}
	})

	probe(out, "Recovery keys", func(out *strings.Builder) {
		out.WriteString("  q quit, r refresh, d download, t train, p pause/resume, L detailed logs\n")
	})

	probe(out, "Recent events", func(out *strings.Builder) {
		entries := r.State.Events.Recent(10)
		if len(entries) == 0 {
			out.WriteString("  (none)\n")
			return
		}
		for _, entry := range entries {
			fmt.Fprintf(out, "  %s [%s] %s\n", entry.Time.Format("15:04:05"), entry.Level, entry.Message)
		}
	})

	probe(out, "Model", func(out *strings.Builder) {
		model := snapshot.Model
		fmt.Fprintf(out, "  name: %s, epochs: %d\n", model.Name, model.Epochs)
		if model.TrainedAt.IsZero() {
			out.WriteString("  not trained in this session\n")
		} else {
			fmt.Fprintf(out, "  trained: %s, validation corr: %.4f\n",
				model.TrainedAt.Format(time.RFC3339), model.ValidationCorr)
		}
		if model.LastSubmission != "" {
			fmt.Fprintf(out, "  last submission: %s (round %d)\n", model.LastSubmission, model.Round)
		}
	})

	return out.String()
}

// ReportPaintFault handles a render-loop fault: the dump goes to a file so
// the screen stays usable, and a short line lands in the event log.
func (r *Reporter) ReportPaintFault(reason interface{}) {
	fault := fmt.Errorf("render fault: %v", reason)
	path, err := r.WriteFile(fault)
	if err != nil {
		common.Error("recovery report", err)
		r.State.Events.Append(eventlog.LevelError, "render fault, recovery report failed: "+err.Error())
		return
	}
	r.State.Events.Append(eventlog.LevelError, "render fault, report written to "+path)
}

// ReportCrash writes the report for an unrecoverable panic and returns
// the report path. The terminal must already be restored by the caller.
func (r *Reporter) ReportCrash(reason interface{}) (string, error) {
	return r.WriteFile(fmt.Errorf("panic: %v", reason))
}

// WriteFile persists the report beside the datasets.
func (r *Reporter) WriteFile(fault error) (string, error) {
	report := r.Report(fault)
	if err := os.MkdirAll(r.State.Config.DataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.State.Config.DataDir, "recovery-report.txt")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func suggestions(fault error, snapshot dash.Snapshot) []string {
	if fault == nil {
		return []string{"dashboard healthy, no action needed"}
	}
	category, _ := faults.Classify(fault)
	switch category {
	case faults.CategoryNetwork, faults.CategoryTimeout:
		result := []string{"check internet connectivity", "retry the failed stage manually once the network recovers"}
		if snapshot.Network.ConsecutiveFailures > 3 {
			result = append(result, "connectivity has failed repeatedly, consider raising network_timeout")
		}
		return result
	case faults.CategoryAuth:
		return []string{"verify NUMERAI_PUBLIC_ID and NUMERAI_SECRET_KEY", "regenerate API credentials if they were revoked"}
	case faults.CategoryAPI:
		return []string{"the tournament API rejected the request, check model name and round status", "wait briefly before retrying to avoid rate limits"}
	case faults.CategoryData:
		return []string{"re-run the download stage to restore missing datasets", "check free disk space in the data directory"}
	case faults.CategoryValidation:
		return []string{"inspect the rejected input in the detailed logs"}
	default:
		return []string{"inspect detailed logs", "restart the dashboard if the condition persists"}
	}
}

func maskedPresence(value string) string {
	if value == "" {
		return "missing"
	}
	return fmt.Sprintf("set (%d chars)", len(value))
}

func directoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
