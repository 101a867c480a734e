// mirador-pm mines process event logs: activity flows, conformance against a
// reference flow, bottleneck transitions, and workload summaries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pm-engine",
	Short: "Process-mining analytics engine",
	Long: `pm-engine turns flat per-case event logs into process analytics:
a directly-follows activity graph, per-case conformance scores, bottleneck
rankings, and aggregate summaries.

Run "pm-engine serve" for the HTTP API or "pm-engine analyze" for a one-shot
report.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
