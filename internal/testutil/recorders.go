package testutil

import (
	"context"
	"sync"

	"barrier-router/internal/models"
)

// RecordingPresenter keeps every value presented to it
type RecordingPresenter[T any] struct {
	mu    sync.Mutex
	items []T
}

func (p *RecordingPresenter[T]) Present(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
}

// Items returns a copy of everything presented so far
func (p *RecordingPresenter[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T{}, p.items...)
}

func (p *RecordingPresenter[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
}

// MockHistory is an in-memory solve history
type MockHistory struct {
	mu      sync.Mutex
	records []models.SolveRecord
	Err     error
}

func (h *MockHistory) Record(ctx context.Context, rec models.SolveRecord) (*models.SolveRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return nil, h.Err
	}
	rec.ID = int64(len(h.records) + 1)
	h.records = append(h.records, rec)
	return &rec, nil
}

func (h *MockHistory) Records() []models.SolveRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.SolveRecord{}, h.records...)
}

// MockReporter counts reported solver failures
type MockReporter struct {
	mu         sync.Mutex
	Operations []string
}

func (r *MockReporter) ReportSolveFailure(err error, sessionID, operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Operations = append(r.Operations, operation)
}

func (r *MockReporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Operations)
}
