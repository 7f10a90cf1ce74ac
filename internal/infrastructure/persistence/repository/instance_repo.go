// Package repository contains the sqlite implementations of the
// application ports. Document snapshots, validation results, and step
// history are serialized to JSON columns; scalar fields stay queryable.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
	"github.com/payables-ai/invoice-triage/internal/domain/workflow"
)

// InstanceRepository implements port.InstanceRepository
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) *InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

const instanceColumns = `id, document_path, state, status, current_step, previous_step,
	retry_count, max_retries, requires_human_review, error_details,
	outcome, reason, document_json, result_json, history_json,
	created_at, updated_at`

// Create persists a new workflow instance
func (r *InstanceRepository) Create(ctx context.Context, inst *entity.WorkflowInstance) error {
	docJSON, resultJSON, historyJSON, err := marshalInstance(inst)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_instances (
			id, document_path, state, status, current_step, previous_step,
			retry_count, max_retries, requires_human_review, error_details,
			outcome, reason, document_json, result_json, history_json,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		inst.ID,
		inst.DocumentPath,
		string(inst.State),
		string(inst.Status),
		string(inst.CurrentStep),
		string(inst.PreviousStep),
		inst.RetryCount,
		inst.MaxRetries,
		inst.RequiresHumanReview,
		inst.ErrorDetails,
		inst.Outcome,
		inst.Reason,
		docJSON,
		resultJSON,
		historyJSON,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create instance", zap.String("id", inst.ID), zap.Error(err))
		return fmt.Errorf("failed to create instance: %w", err)
	}
	return nil
}

// Update overwrites an instance snapshot
func (r *InstanceRepository) Update(ctx context.Context, inst *entity.WorkflowInstance) error {
	docJSON, resultJSON, historyJSON, err := marshalInstance(inst)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_instances SET
			state = ?, status = ?, current_step = ?, previous_step = ?,
			retry_count = ?, requires_human_review = ?, error_details = ?,
			outcome = ?, reason = ?, document_json = ?, result_json = ?,
			history_json = ?, updated_at = ?
		WHERE id = ?
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		string(inst.State),
		string(inst.Status),
		string(inst.CurrentStep),
		string(inst.PreviousStep),
		inst.RetryCount,
		inst.RequiresHumanReview,
		inst.ErrorDetails,
		inst.Outcome,
		inst.Reason,
		docJSON,
		resultJSON,
		historyJSON,
		inst.UpdatedAt,
		inst.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update instance", zap.String("id", inst.ID), zap.Error(err))
		return fmt.Errorf("failed to update instance: %w", err)
	}
	return nil
}

// GetByID retrieves a workflow instance. Returns nil, nil when not found.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = ?`

	inst, err := scanInstance(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get instance by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return inst, nil
}

// ClaimPending atomically marks up to limit received instances as claimed
// and returns them. The claimed flag gives each instance a single owner
// even with multiple workers polling.
func (r *InstanceRepository) ClaimPending(ctx context.Context, limit int) ([]*entity.WorkflowInstance, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE claimed = 0 AND state = ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := tx.QueryContext(ctx, query, string(workflow.StateReceived), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending instances: %w", err)
	}

	var instances []*entity.WorkflowInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, inst := range instances {
		if _, err := tx.ExecContext(ctx,
			`UPDATE workflow_instances SET claimed = 1 WHERE id = ?`, inst.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to claim instance %s: %w", inst.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return instances, nil
}

// ResetStaleClaims releases claims left behind by a crashed worker. An
// instance still in the received state was claimed but never advanced, so
// it is safe to hand out again. Runs once at startup, before any worker
// polls.
func (r *InstanceRepository) ResetStaleClaims(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE workflow_instances SET claimed = 0 WHERE claimed = 1 AND state = ?`,
		string(workflow.StateReceived),
	)
	if err != nil {
		r.logger.Error("Failed to reset stale claims", zap.Error(err))
		return 0, fmt.Errorf("failed to reset stale claims: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row rowScanner) (*entity.WorkflowInstance, error) {
	var inst entity.WorkflowInstance
	var state, status, currentStep, previousStep string
	var docJSON, resultJSON sql.NullString
	var historyJSON string

	err := row.Scan(
		&inst.ID,
		&inst.DocumentPath,
		&state,
		&status,
		&currentStep,
		&previousStep,
		&inst.RetryCount,
		&inst.MaxRetries,
		&inst.RequiresHumanReview,
		&inst.ErrorDetails,
		&inst.Outcome,
		&inst.Reason,
		&docJSON,
		&resultJSON,
		&historyJSON,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.State = workflow.State(state)
	inst.Status = entity.Status(status)
	inst.CurrentStep = entity.Step(currentStep)
	inst.PreviousStep = entity.Step(previousStep)

	if docJSON.Valid && docJSON.String != "" {
		var doc document.DocumentData
		if err := json.Unmarshal([]byte(docJSON.String), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document snapshot: %w", err)
		}
		inst.Document = &doc
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result validation.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("failed to decode validation result: %w", err)
		}
		inst.Result = &result
	}
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &inst.History); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
	}
	return &inst, nil
}

func marshalInstance(inst *entity.WorkflowInstance) (docJSON, resultJSON sql.NullString, historyJSON string, err error) {
	if inst.Document != nil {
		b, mErr := json.Marshal(inst.Document)
		if mErr != nil {
			err = fmt.Errorf("failed to encode document snapshot: %w", mErr)
			return
		}
		docJSON = sql.NullString{String: string(b), Valid: true}
	}
	if inst.Result != nil {
		b, mErr := json.Marshal(inst.Result)
		if mErr != nil {
			err = fmt.Errorf("failed to encode validation result: %w", mErr)
			return
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}

	history := inst.History
	if history == nil {
		history = []entity.StepRecord{}
	}
	b, mErr := json.Marshal(history)
	if mErr != nil {
		err = fmt.Errorf("failed to encode history: %w", mErr)
		return
	}
	historyJSON = string(b)
	return
}

// getExecutor returns appropriate executor based on context
func (r *InstanceRepository) getExecutor(ctx context.Context) executor {
	if tx, ok := ctx.Value(contextKey("tx")).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type contextKey string

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
