// Command synth-cli runs the generation pipelines locally against the same
// stack the Lambdas use. Artifacts go to S3 by default, or to a local
// directory with --out-dir.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile    string
	sqlitePath string
	outDir     string

	startFrom int
	endAt     int
	limit     int
	dryRun    bool
	overwrite bool
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "synth-cli",
	Short: "Generate synthetic patient headshots, instructions and descriptions",
	Long: `synth-cli walks a range of case IDs through one pipeline and prints the
same JSON response the HTTP endpoints return.

Examples:
  synth-cli headshots --start-from 1 --limit 3
  synth-cli instructions --sqlite ./cases.db --out-dir ./out --dry-run
  synth-cli descriptions --start-from 40 --end-at 60 --overwrite
  synth-cli serve --addr :8080`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "Environment file loaded before the process environment (optional)")
	pf.StringVar(&sqlitePath, "sqlite", "", "Read case records from this SQLite database instead of the configured backend")
	pf.StringVar(&outDir, "out-dir", "", "Write artifacts under this directory instead of S3")

	for _, cmd := range []*cobra.Command{headshotsCmd, instructionsCmd, descriptionsCmd} {
		f := cmd.Flags()
		f.IntVar(&startFrom, "start-from", 1, "First case ID")
		f.IntVar(&endAt, "end-at", 0, "Last case ID (default MAX_CASE_ID)")
		f.IntVar(&limit, "limit", 0, "Maximum cases attempted (default DEFAULT_LIMIT)")
		f.BoolVar(&dryRun, "dry-run", false, "Read records only; no model calls or writes")
		f.BoolVar(&overwrite, "overwrite", false, "Regenerate artifacts that already exist")
		f.BoolVar(&debug, "debug", false, "Stop at the first successful case and print its intermediate data")
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
