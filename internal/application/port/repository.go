package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/stocktake/internal/domain/counting"
)

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("record not found")

// RunRecord is the persisted form of a stocktake run
type RunRecord struct {
	ID         string
	SourceName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Snapshot   counting.Snapshot
}

// RunRepository defines persistence operations for stocktake runs
type RunRepository interface {
	Save(ctx context.Context, run *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*RunRecord, error)
}

// TransactionManager runs fn inside a single transaction. Repository calls
// made with the ctx passed to fn join that transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
