package port

import (
	"context"

	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// InstanceRepository persists workflow instance snapshots.
type InstanceRepository interface {
	Create(ctx context.Context, inst *entity.WorkflowInstance) error
	Update(ctx context.Context, inst *entity.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*entity.WorkflowInstance, error)

	// ClaimPending atomically marks up to limit received instances as
	// processing and returns them. Claiming enforces single-writer
	// ownership across workers.
	ClaimPending(ctx context.Context, limit int) ([]*entity.WorkflowInstance, error)
}

// ResultRepository persists validation results for audit.
type ResultRepository interface {
	Save(ctx context.Context, instanceID string, result *validation.Result) error
	GetLatest(ctx context.Context, instanceID string) (*validation.Result, error)
}
