package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// ResultRepository implements port.ResultRepository
type ResultRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResultRepository creates a new validation result repository
func NewResultRepository(db *sql.DB, logger *zap.Logger) port.ResultRepository {
	return &ResultRepository{
		db:     db,
		logger: logger,
	}
}

// Save appends a validation result for an instance. Every run is kept so
// re-validation after corrections leaves an audit trail.
func (r *ResultRepository) Save(ctx context.Context, instanceID string, result *validation.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode validation result: %w", err)
	}

	query := `
		INSERT INTO validation_results (
			instance_id, passed, confidence_score, rules_version, result_json, validated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		instanceID,
		result.Passed,
		result.ConfidenceScore,
		result.RulesVersion,
		string(payload),
		result.ValidatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save validation result",
			zap.String("instance_id", instanceID), zap.Error(err))
		return fmt.Errorf("failed to save validation result: %w", err)
	}
	return nil
}

// GetLatest returns the most recent validation result for an instance, or
// nil, nil when none exists.
func (r *ResultRepository) GetLatest(ctx context.Context, instanceID string) (*validation.Result, error) {
	query := `
		SELECT result_json
		FROM validation_results
		WHERE instance_id = ?
		ORDER BY validated_at DESC, id DESC
		LIMIT 1
	`

	var payload string
	err := r.db.QueryRowContext(ctx, query, instanceID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get validation result",
			zap.String("instance_id", instanceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get validation result: %w", err)
	}

	var result validation.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode validation result: %w", err)
	}
	return &result, nil
}

// Verify interface compliance
var _ port.ResultRepository = (*ResultRepository)(nil)
