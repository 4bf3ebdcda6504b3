// Trapflow - Equipment trap log importer
// Extracts link and tunnel up/down events from trap log files and
// generates the SQL scripts that load them into the events database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputDir     string
	outputDir    string
	catalogDSN   string
	snapshotPath string
	workers      int
	operatorID   int64
	skipImported bool
	writeReport  bool
	verbose      bool
)

func main() {
	// .env is optional; real deployments use config files or env vars
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trapflow",
	Short: "Trapflow - Import trap log events",
	Long: `Trapflow reads equipment trap log files, extracts link and tunnel
up/down events, resolves them against the object catalogue and writes
one transactional SQL insert script per input file, plus an error
report for the lines that could not be imported.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process all trap files in the input folder",
	Long: `Run one batch over the input folder. Every *.txt file is processed
independently; a file that fails is reported and the batch continues.

Examples:
  trapflow process
  trapflow process --input ./Traps --output ./Output
  trapflow process --snapshot identifiers.csv --report
  trapflow process --skip-imported`,
	RunE: runProcess,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the input folder and import files as they arrive",
	Long: `Keep running and import each trap file when its upload settles.
Interrupt with Ctrl-C; the file being processed is finished first.`,
	RunE: runWatch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending trap files and ledger state",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&inputDir, "input", "", "Traps folder (default from config)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "Output folder for scripts and reports")
	rootCmd.PersistentFlags().StringVar(&catalogDSN, "dsn", "", "SQL Server catalogue connection string")
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "CSV snapshot of the identifier catalogue (offline runs)")

	processCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent files (0 = number of CPUs)")
	processCmd.Flags().Int64Var(&operatorID, "operator", 0, "Operator id stamped on inserted events")
	processCmd.Flags().BoolVar(&skipImported, "skip-imported", false, "Skip files already recorded in the import ledger")
	processCmd.Flags().BoolVar(&writeReport, "report", false, "Write an XLSX run report into the output folder")

	watchCmd.Flags().Int64Var(&operatorID, "operator", 0, "Operator id stamped on inserted events")
	watchCmd.Flags().BoolVar(&skipImported, "skip-imported", false, "Skip files already recorded in the import ledger")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}
