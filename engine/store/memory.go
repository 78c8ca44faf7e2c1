// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/bonus-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	runs         []engine.RunInfo
	intermediate []engine.Employee
	employees    []engine.Employee
	ledger       []engine.Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

// SaveIntermediate keeps the latest pre-bonus dataset.
func (m *Memory) SaveIntermediate(_ context.Context, _ engine.RunInfo, employees []engine.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intermediate = append([]engine.Employee(nil), employees...)
	return nil
}

// SaveRun replaces the stored dataset and ledger with the result's.
func (m *Memory) SaveRun(_ context.Context, result *engine.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, result.Run)
	m.employees = append([]engine.Employee(nil), result.Employees...)
	m.ledger = result.Ledger.Entries()
	return nil
}

func (m *Memory) LatestRun(_ context.Context) (engine.RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return engine.RunInfo{}, engine.ErrNotFound
	}
	return m.runs[len(m.runs)-1], nil
}

func (m *Memory) LoadEmployees(ctx context.Context, runID engine.RunID) ([]engine.Employee, error) {
	if err := m.checkCurrent(ctx, runID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.Employee(nil), m.employees...), nil
}

func (m *Memory) LoadLedger(ctx context.Context, runID engine.RunID) (*engine.Ledger, error) {
	if err := m.checkCurrent(ctx, runID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ledger := engine.NewLedger()
	for _, e := range m.ledger {
		ledger.Append(e)
	}
	return ledger, nil
}

// Intermediate returns the latest pre-bonus dataset.
func (m *Memory) Intermediate() []engine.Employee {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.Employee(nil), m.intermediate...)
}

// Only the latest run's datasets are kept.
func (m *Memory) checkCurrent(ctx context.Context, runID engine.RunID) error {
	latest, err := m.LatestRun(ctx)
	if err != nil {
		return err
	}
	if latest.ID != runID {
		return engine.ErrNotFound
	}
	return nil
}

var _ engine.Store = (*Memory)(nil)
