// Package memory provides the default in-process run store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/stocktake/internal/application/port"
	"github.com/garyjia/stocktake/internal/domain/counting"
	"github.com/garyjia/stocktake/internal/domain/entity"
)

// RunRepository keeps run records in a map. Records are copied on the way in
// and out so callers never share snapshot slices with the store.
type RunRepository struct {
	mu   sync.RWMutex
	runs map[string]*port.RunRecord
}

// NewRunRepository creates an empty in-memory run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]*port.RunRecord)}
}

// Save inserts or replaces a run
func (r *RunRepository) Save(ctx context.Context, run *port.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = cloneRecord(run)
	return nil
}

// Get returns a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*port.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, port.ErrNotFound)
	}
	return cloneRecord(run), nil
}

// Delete removes a run
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, port.ErrNotFound)
	}
	delete(r.runs, id)
	return nil
}

// List returns every run in no particular order
func (r *RunRepository) List(ctx context.Context) ([]*port.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*port.RunRecord, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, cloneRecord(run))
	}
	return out, nil
}

func cloneRecord(run *port.RunRecord) *port.RunRecord {
	cp := *run
	cp.Snapshot = counting.Snapshot{Items: entity.CloneItems(run.Snapshot.Items)}
	for _, s := range run.Snapshot.Sessions {
		s.Quantities = append([]int(nil), s.Quantities...)
		cp.Snapshot.Sessions = append(cp.Snapshot.Sessions, s)
	}
	return &cp
}

var _ port.RunRepository = (*RunRepository)(nil)
