package ports

import (
	"context"

	"qacompare/domain/core"
	"qacompare/domain/qa"
)

// RunRepository defines the interface for QA run storage operations
type RunRepository interface {
	Save(ctx context.Context, run *qa.RunRecord) error
	GetByID(ctx context.Context, id core.RunID) (*qa.RunRecord, error)
	List(ctx context.Context, limit, offset int) ([]*qa.RunRecord, error)
	Delete(ctx context.Context, id core.RunID) error
}
