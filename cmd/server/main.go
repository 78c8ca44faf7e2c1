/*
main.go - Query server entry point

PURPOSE:
  Serves the query API over the latest completed pipeline run.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Load the bonus policy
  3. Open the SQLite store and load the latest run
     (falls back to the final dataset file and error.txt when the store
     has no run)
  4. Start the refresh scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: PORT or 8080)
  -db      SQLite database path (default: BONUS_DB or bonus.db)
           Empty serves the final dataset file only
  -final   Final dataset file used when the store has no run
  -policy  Policy JSON file (default: BONUS_POLICY_FILE or built-in)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the refresh scheduler and close the database
  4. Exit

EXAMPLES:
  # Serve the run written by ./pipeline
  ./server -db="./bonus.db"

  # Serve a final dataset file without a database
  ./server -db="" -final="./out/emp_end_yr.txt"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/bonus-engine/analytics"
	"github.com/warp/bonus-engine/api"
	"github.com/warp/bonus-engine/config"
	"github.com/warp/bonus-engine/engine"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/report"
	"github.com/warp/bonus-engine/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	// Flags
	port := flag.String("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path, empty to disable")
	finalPath := flag.String("final", filepath.Join(cfg.Output.Dir, report.FinalFile), "final dataset file used when the store has no run")
	policyFile := flag.String("policy", cfg.PolicyFile, "bonus policy JSON file")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	config.SetLogLevel(*logLevel)
	logger := config.GetLogger()

	policy := engine.DefaultPolicy()
	if *policyFile != "" {
		p, err := factory.NewPolicyFactory().LoadPolicyFile(*policyFile)
		if err != nil {
			config.LogError(logger, "main", "LoadPolicyFile", "policy", *policyFile, err)
			return 1
		}
		policy = p
	}

	handler := api.NewHandler(nil, logger)
	handler.Policy = policy

	// Initialize store
	var store *sqlite.Store
	if *dbPath != "" {
		s, err := sqlite.New(*dbPath)
		if err != nil {
			config.LogError(logger, "main", "sqlite.New", "open store", *dbPath, err)
			return 1
		}
		defer s.Close()
		store = s

		handler.Runs = store
		handler.Reload = func(ctx context.Context) (*analytics.Snapshot, error) {
			return analytics.Load(ctx, store, policy)
		}
	}

	snap, err := initialSnapshot(context.Background(), handler, *finalPath, policy, logger)
	if err != nil {
		config.LogError(logger, "main", "initialSnapshot", "load run", nil, err)
		return 1
	}
	handler.SetSnapshot(snap)

	if store != nil {
		scheduler := api.NewRefreshScheduler(store, handler, logger)
		scheduler.CheckInterval = cfg.Server.RefreshInterval
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", "http://localhost:"+*port+"/api").Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		config.LogError(logger, "main", "ListenAndServe", "server failed", *port, err)
		return 1
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		config.LogError(logger, "main", "Shutdown", "server forced to shutdown", nil, err)
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// initialSnapshot loads the latest stored run, falling back to the final
// dataset file and the error report beside it. It returns nil without error
// when neither exists yet; the API answers 503 until a run is loaded.
func initialSnapshot(ctx context.Context, h *api.Handler, finalPath string, policy engine.Policy, logger logrus.FieldLogger) (*analytics.Snapshot, error) {
	if h.Reload != nil {
		snap, err := h.Reload(ctx)
		if err == nil {
			logger.WithFields(logrus.Fields{"run_id": snap.Run().ID, "employees": snap.Len()}).Info("serving stored run")
			return snap, nil
		}
		if !errors.Is(err, engine.ErrNotFound) {
			return nil, err
		}
	}

	employees, err := report.LoadFinal(finalPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.WithField("path", finalPath).Warn("no completed run found, waiting for the pipeline")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run := engine.RunInfo{ID: engine.RunID("file:" + filepath.Base(finalPath)), Employees: len(employees)}
	if info, statErr := os.Stat(finalPath); statErr == nil {
		run.FinishedAt = info.ModTime()
	}

	// the error report of the same run sits next to the final dataset
	errorPath := filepath.Join(filepath.Dir(finalPath), report.ErrorFile)
	ledger, _, err := report.LoadLedger(errorPath)
	if err != nil {
		logger.WithError(err).WithField("path", errorPath).Warn("error report unavailable, serving an empty ledger")
		ledger = nil
	} else {
		run.LedgerEntries = ledger.Len()
	}

	logger.WithFields(logrus.Fields{"path": finalPath, "employees": len(employees)}).Info("serving final dataset file")
	return analytics.NewSnapshot(run, employees, ledger, policy), nil
}
