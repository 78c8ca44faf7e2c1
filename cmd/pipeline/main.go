/*
main.go - Batch entry point

PURPOSE:
  Runs one pass of the performance metrics and bonus pipeline over the input
  feeds and writes the results to the output directory and the SQLite store.

SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Load the bonus policy
  3. Open the input feeds and the sinks
  4. Run the pipeline
  5. Log the run summary

COMMAND-LINE FLAGS:
  -data     Input directory (default: BONUS_DATA_DIR or .)
  -out      Output directory (default: BONUS_OUTPUT_DIR or .)
  -policy   Policy JSON file (default: BONUS_POLICY_FILE or built-in)
  -db       SQLite database path (default: BONUS_DB or bonus.db)
            Empty disables the store
  -xlsx     Also write emp_end_yr.xlsx (default: true)

EXIT STATUS:
  0  Run completed and every output was written
  1  Configuration error, interrupted run, or an output could not be written

EXAMPLES:
  # Run against last year's feeds
  ./pipeline -data=./data/2024 -out=./out/2024

  # Files only
  ./pipeline -db=""

SEE ALSO:
  - engine/pipeline.go: Stage orchestration
  - cmd/server/main.go: Query server over the stored run
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/warp/bonus-engine/config"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/report"
	"github.com/warp/bonus-engine/source"
	"github.com/warp/bonus-engine/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	// Flags
	dataDir := flag.String("data", cfg.Data.Dir, "input directory")
	outDir := flag.String("out", cfg.Output.Dir, "output directory")
	policyFile := flag.String("policy", cfg.PolicyFile, "bonus policy JSON file")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path, empty to disable")
	workbook := flag.Bool("xlsx", true, "also write the Excel report")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	config.SetLogLevel(*logLevel)
	logger := config.GetLogger()

	policy, err := loadPolicy(*policyFile)
	if err != nil {
		config.LogError(logger, "main", "loadPolicy", "policy", *policyFile, err)
		return 1
	}

	src := source.NewDir(*dataDir, logger)
	src.Files = cfg.Data.Files()

	fileSink := report.NewFileSink(*outDir, logger)
	fileSink.Workbook = *workbook
	sinks := []engine.Sink{fileSink}

	if *dbPath != "" {
		store, err := sqlite.New(*dbPath)
		if err != nil {
			config.LogError(logger, "main", "sqlite.New", "open store", *dbPath, err)
			return 1
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := engine.NewPipeline(policy, logger, sinks...).Run(ctx, src)
	if res == nil {
		config.LogError(logger, "main", "Run", "pipeline aborted", nil, err)
		return 1
	}
	logSummary(logger, res)
	if err != nil {
		config.LogError(logger, "main", "Run", "outputs incomplete", nil, err)
		return 1
	}
	return 0
}

func loadPolicy(path string) (engine.Policy, error) {
	if path == "" {
		return engine.DefaultPolicy(), nil
	}
	return factory.NewPolicyFactory().LoadPolicyFile(path)
}

func logSummary(logger logrus.FieldLogger, res *engine.Result) {
	threshold := "none"
	if res.Eligibility.HasPopulation() {
		threshold = res.Eligibility.Threshold.Decimal.StringFixed(2)
	}
	fields := logrus.Fields{
		"run_id":               res.Run.ID,
		"employees":            res.Run.Employees,
		"average_utilization":  res.Run.AverageUtilization.StringFixed(2),
		"threshold":            threshold,
		"eligible_consultants": res.Eligibility.EligibleConsultants,
		"directors":            res.Eligibility.Directors,
		"total_payout":         res.Run.TotalPayout.StringFixed(2),
		"ledger_entries":       res.Run.LedgerEntries,
	}
	if len(res.Run.SkippedStages) > 0 {
		fields["skipped_stages"] = res.Run.SkippedStages
	}
	for c, n := range res.Ledger.Counts() {
		fields["errors_"+string(c)] = n
	}
	logger.WithFields(fields).Info("run summary")
}
