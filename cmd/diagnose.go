package cmd

import (
	"github.com/spf13/cobra"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/pretty"
	"github.com/romainhaenni/numerai-cli/recovery"
)

var diagnoseFileFlag bool

var diagnoseCmd = &cobra.Command{
	Use:     "diagnose",
	Aliases: []string{"diagnostics", "report"},
	Short:   "Print a recovery and environment report",
	Long: `Print a recovery and environment report.

Collects system metrics, network reachability, configuration, local data
files and the last known good state into one report. The same report is
generated automatically when the dashboard hits an unrecoverable fault.

Example:
  numerai-cli diagnose
  numerai-cli diagnose --file`,
	Run: func(cmd *cobra.Command, args []string) {
		state := dash.New(cfg)
		reporter := recovery.New(state)

		if diagnoseFileFlag {
			path, err := reporter.WriteFile(nil)
			pretty.Guard(err == nil, 1, "Could not write report: %v", err)
			pretty.Success("Report written to " + path)
			return
		}
		common.Stdout("%s", reporter.Report(nil))
	},
}

func init() {
	diagnoseCmd.Flags().BoolVarP(&diagnoseFileFlag, "file", "f", false, "write the report into the data directory instead of stdout")
	rootCmd.AddCommand(diagnoseCmd)
}
