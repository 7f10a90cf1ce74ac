// Package entity holds the persistent domain records shared between the
// workflow engine, the repositories, and the API layer.
package entity

import (
	"time"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
	"github.com/payables-ai/invoice-triage/internal/domain/workflow"
)

// Step names one stage of the processing pipeline.
type Step string

const (
	StepExtraction Step = "extraction"
	StepValidation Step = "validation"
	StepTriage     Step = "triage"
	StepStaging    Step = "staging"
	StepReview     Step = "review"
)

// Status is the coarse instance status exposed to callers and persisted
// alongside the fine-grained machine state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusStaged     Status = "staged"
	StatusException  Status = "exception"
	StatusError      Status = "error"
	StatusEscalated  Status = "escalated"
	StatusRetry      Status = "retry"
)

// StepStatus marks the outcome of one processing history record.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepRetried   StepStatus = "retried"
	StepSkipped   StepStatus = "skipped"
)

// StepRecord is one append-only entry in an instance's processing history.
type StepRecord struct {
	Step      Step              `json:"step"`
	Status    StepStatus        `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// WorkflowInstance is the mutable process state for one invoice
// processing attempt. It is mutated exclusively by the workflow engine
// (single-writer ownership) and becomes immutable once State is terminal.
type WorkflowInstance struct {
	ID           string         `json:"id"`
	DocumentPath string         `json:"document_path"`
	State        workflow.State `json:"state"`
	Status       Status         `json:"status"`
	CurrentStep  Step           `json:"current_step"`
	PreviousStep Step           `json:"previous_step,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	RequiresHumanReview bool   `json:"requires_human_review"`
	ErrorDetails        string `json:"error_details,omitempty"`

	// Snapshots carried across steps and review resumption.
	Document *document.DocumentData `json:"document,omitempty"`
	Result   *validation.Result     `json:"result,omitempty"`
	Outcome  string                 `json:"outcome,omitempty"`
	Reason   string                 `json:"reason,omitempty"`

	History []StepRecord `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppendHistory adds a step record to the processing history.
func (w *WorkflowInstance) AppendHistory(rec StepRecord) {
	w.History = append(w.History, rec)
	w.UpdatedAt = time.Now()
}

// Terminal reports whether the instance reached a terminal machine state.
func (w *WorkflowInstance) Terminal() bool {
	return w.State.IsTerminal()
}
