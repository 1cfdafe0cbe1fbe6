package cmd

import (
	"github.com/spf13/cobra"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/config"
	"github.com/romainhaenni/numerai-cli/pretty"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "numerai-cli",
	Short: "Terminal dashboard for the Numerai tournament pipeline",
	Long: `Terminal dashboard supervising the Numerai tournament pipeline.

Watches and drives the download, training, prediction and submission
stages from one live view. Run without arguments to open the
dashboard, or use subcommands for one-shot operations.

Example:
  numerai-cli
  numerai-cli run
  numerai-cli diagnose`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		common.WaitLogs()
		pretty.Exit(1, "Error: %v", err)
	}
	common.WaitLogs()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&common.DebugFlag, "debug", "", false, "to get debug output where available (not for production use)")
	rootCmd.PersistentFlags().BoolVarP(&common.TraceFlag, "trace", "", false, "to get trace output where available (not for production use)")
	rootCmd.PersistentFlags().BoolVarP(&common.SilentFlag, "silent", "", false, "be less verbose on output")
	rootCmd.PersistentFlags().BoolVarP(&common.LogLinenumbers, "numbers", "", false, "put line numbers on produced log output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "config file (default: ./numerai.yaml or $NUMERAI_HOME/numerai.yaml)")
}
