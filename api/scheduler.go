/*
scheduler.go - Snapshot refresh scheduler

PURPOSE:
  Periodically checks the store for a run newer than the one being served
  and swaps it in, so a batch run finishing while the server is up becomes
  visible without a restart or a manual reload.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Compares the store's latest run ID with the last run it loaded
  - Skips the reload when nothing changed, so a demo scenario stays loaded
    until a new batch run lands
  - Failures are logged and retried on the next tick

USAGE:
  scheduler := NewRefreshScheduler(store, handler, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ReloadRun endpoint (manual reload)
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/bonus-engine/engine"
)

// LatestRunner reports the latest completed run.
type LatestRunner interface {
	LatestRun(ctx context.Context) (engine.RunInfo, error)
}

// RefreshScheduler keeps a Handler's snapshot in step with the store.
type RefreshScheduler struct {
	Store         LatestRunner
	Handler       *Handler
	CheckInterval time.Duration
	Logger        logrus.FieldLogger

	lastSeen engine.RunID

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a new scheduler. handler.Reload must be set.
func NewRefreshScheduler(store LatestRunner, handler *Handler, log logrus.FieldLogger) *RefreshScheduler {
	rs := &RefreshScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: time.Minute,
		Logger:        log,
	}
	if snap := handler.Snapshot(); snap != nil {
		rs.lastSeen = snap.Run().ID
	}
	return rs
}

// Start begins the scheduler. A zero CheckInterval disables it. Starting a
// running scheduler does nothing.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.Logger.Debug("refresh scheduler already running")
		return
	}
	if rs.CheckInterval <= 0 {
		rs.Logger.Info("refresh scheduler disabled")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.Logger.WithField("interval", rs.CheckInterval.String()).Info("refresh scheduler started")
}

// Stop stops the scheduler and waits for an in-flight check.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Logger.Info("refresh scheduler stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow checks once and reports whether the snapshot was replaced. It is
// called from the scheduler goroutine only, or directly when not started.
func (rs *RefreshScheduler) RunNow(ctx context.Context) bool {
	latest, err := rs.Store.LatestRun(ctx)
	if errors.Is(err, engine.ErrNotFound) {
		return false
	}
	if err != nil {
		rs.Logger.WithError(err).Warn("refresh: failed to read latest run")
		return false
	}

	if latest.ID == rs.lastSeen {
		return false
	}

	snap, err := rs.Handler.Reload(ctx)
	if err != nil {
		rs.Logger.WithError(err).WithField("run_id", latest.ID).Warn("refresh: failed to load run")
		return false
	}
	rs.lastSeen = latest.ID
	rs.Handler.SetSnapshot(snap)
	rs.Logger.WithFields(logrus.Fields{
		"run_id":    snap.Run().ID,
		"employees": snap.Len(),
	}).Info("snapshot refreshed")
	return true
}
