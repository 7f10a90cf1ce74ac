package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
	domainwf "github.com/payables-ai/invoice-triage/internal/domain/workflow"
	"github.com/payables-ai/invoice-triage/internal/triage"
)

// Validator runs one validation attempt over a document.
type Validator interface {
	Validate(ctx context.Context, doc *document.DocumentData) *domainval.Result
}

// Decider evaluates the triage decision table.
type Decider interface {
	Decide(result *domainval.Result, qualityScore float64) triage.Decision
}

// Stager moves an approved instance into the export staging area.
type Stager interface {
	Stage(ctx context.Context, inst *entity.WorkflowInstance) error
}

// Engine drives one workflow instance through the processing graph. Each
// instance has a single owning goroutine for its lifetime; the engine is
// safe for concurrent use across distinct instances.
type Engine struct {
	extractor port.Extractor
	validator Validator
	decider   Decider
	patcher   port.FieldPatcher // optional
	instances port.InstanceRepository
	results   port.ResultRepository
	stager    Stager
	builder   domainwf.StateMachineBuilder
	retry     *RetryStrategy
	logger    *zap.Logger
}

// NewEngine wires the workflow engine. patcher may be nil, in which case
// auto_resolve decisions route to human review instead.
func NewEngine(
	extractor port.Extractor,
	validator Validator,
	decider Decider,
	patcher port.FieldPatcher,
	instances port.InstanceRepository,
	results port.ResultRepository,
	stager Stager,
	retry *RetryStrategy,
	logger *zap.Logger,
) *Engine {
	if retry == nil {
		retry = NewRetryStrategy()
	}
	return &Engine{
		extractor: extractor,
		validator: validator,
		decider:   decider,
		patcher:   patcher,
		instances: instances,
		results:   results,
		stager:    stager,
		builder:   domainwf.NewProcessingBuilder(),
		retry:     retry,
		logger:    logger,
	}
}

// NewInstance creates a workflow instance for one submitted document.
// Either documentPath or doc must be set; a pre-extracted doc skips the
// extraction step.
func NewInstance(documentPath string, doc *document.DocumentData, maxRetries int) *entity.WorkflowInstance {
	now := time.Now().UTC()
	return &entity.WorkflowInstance{
		ID:           uuid.NewString(),
		DocumentPath: documentPath,
		Document:     doc,
		State:        domainwf.StateReceived,
		Status:       entity.StatusProcessing,
		CurrentStep:  entity.StepExtraction,
		MaxRetries:   maxRetries,
		History:      []entity.StepRecord{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Process runs the instance until it reaches a terminal state or parks in
// review. Cancellation is honored at step boundaries only; a step in
// flight always runs to completion so partial results are never recorded.
func (e *Engine) Process(ctx context.Context, inst *entity.WorkflowInstance) error {
	if inst.Terminal() {
		return ErrInstanceTerminal
	}
	m := e.builder.Build(inst.State)
	return e.run(ctx, m, inst)
}

func (e *Engine) run(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch m.State() {
		case domainwf.StateReceived:
			if err := e.advance(ctx, m, inst, entity.StepExtraction); err != nil {
				return err
			}
		case domainwf.StateRetry:
			if err := e.advance(ctx, m, inst, inst.PreviousStep); err != nil {
				return err
			}
		case domainwf.StateExtracted:
			if err := e.advance(ctx, m, inst, entity.StepValidation); err != nil {
				return err
			}
		case domainwf.StateValidated:
			if err := e.advance(ctx, m, inst, entity.StepTriage); err != nil {
				return err
			}
		case domainwf.StateTriaged:
			if err := e.route(ctx, m, inst); err != nil {
				return err
			}
		case domainwf.StateReview:
			// Parked for a human; ApplyReview resumes.
			return e.save(ctx, inst)
		default:
			return e.save(ctx, inst)
		}

		if inst.Terminal() {
			return e.save(ctx, inst)
		}
	}
}

// advance runs one step and fires its completion trigger, or hands the
// failure to the retry/review/escalate policy.
func (e *Engine) advance(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance, step entity.Step) error {
	inst.CurrentStep = step
	start := time.Now()

	err := e.runStep(ctx, inst, step)
	duration := time.Since(start)

	if err == nil {
		inst.AppendHistory(entity.StepRecord{
			Step:      step,
			Status:    entity.StepCompleted,
			StartedAt: start,
			Duration:  duration,
		})
		inst.PreviousStep = step
		return e.fire(ctx, m, inst, completionTrigger(step))
	}

	return e.handleFailure(ctx, m, inst, step, start, duration, err)
}

func completionTrigger(step entity.Step) domainwf.Trigger {
	switch step {
	case entity.StepExtraction:
		return domainwf.TriggerExtracted
	case entity.StepValidation:
		return domainwf.TriggerValidated
	case entity.StepTriage:
		return domainwf.TriggerTriaged
	case entity.StepStaging:
		return domainwf.TriggerStage
	}
	return domainwf.TriggerFail
}

func (e *Engine) runStep(ctx context.Context, inst *entity.WorkflowInstance, step entity.Step) error {
	switch step {
	case entity.StepExtraction:
		if inst.Document != nil {
			return nil
		}
		if e.extractor == nil {
			return Permanent(fmt.Errorf("no extractor configured and no document supplied"))
		}
		doc, err := e.extractor.Extract(ctx, inst.DocumentPath)
		if err != nil {
			return Transient(fmt.Errorf("extract %s: %w", inst.DocumentPath, err))
		}
		doc.SourceID = inst.ID
		inst.Document = doc
		return nil

	case entity.StepValidation:
		if inst.Document == nil {
			return InputFault(fmt.Errorf("no document data to validate"))
		}
		result := e.validator.Validate(ctx, inst.Document)
		inst.Result = result
		if err := e.results.Save(ctx, inst.ID, result); err != nil {
			return Transient(fmt.Errorf("persist validation result: %w", err))
		}
		return nil

	case entity.StepTriage:
		if inst.Result == nil {
			return InputFault(fmt.Errorf("no validation result to triage"))
		}
		decision := e.decider.Decide(inst.Result, inst.Document.Confidence.Overall)
		inst.Outcome = string(decision.Outcome)
		inst.Reason = decision.Reason
		inst.RequiresHumanReview = decision.HumanReviewRequired
		return nil

	case entity.StepStaging:
		if err := e.stager.Stage(ctx, inst); err != nil {
			return Transient(fmt.Errorf("stage instance: %w", err))
		}
		return nil
	}
	return Permanent(fmt.Errorf("unknown step %q", step))
}

// route resolves the triaged state according to the stored decision.
func (e *Engine) route(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance) error {
	outcome := triage.Outcome(inst.Outcome)

	switch {
	case outcome.Approved():
		inst.Status = entity.StatusReady
		if err := e.save(ctx, inst); err != nil {
			return err
		}
		return e.stageApproved(ctx, m, inst)

	case outcome == triage.OutcomeAutoResolve && e.patcher != nil && !autoResolveAttempted(inst):
		return e.autoResolve(ctx, m, inst)

	default:
		inst.RequiresHumanReview = true
		return e.fire(ctx, m, inst, domainwf.TriggerRequestReview)
	}
}

func (e *Engine) stageApproved(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance) error {
	inst.CurrentStep = entity.StepStaging
	start := time.Now()
	err := e.runStep(ctx, inst, entity.StepStaging)
	duration := time.Since(start)
	if err != nil {
		return e.handleFailure(ctx, m, inst, entity.StepStaging, start, duration, err)
	}
	inst.AppendHistory(entity.StepRecord{
		Step:      entity.StepStaging,
		Status:    entity.StepCompleted,
		StartedAt: start,
		Duration:  duration,
		Metadata:  map[string]string{"outcome": inst.Outcome},
	})
	inst.PreviousStep = entity.StepStaging
	return e.fire(ctx, m, inst, domainwf.TriggerStage)
}

// autoResolve asks the field patcher for corrections, applies them, and
// loops back through validation. One attempt per instance; a second
// failed validation routes to review like any other.
func (e *Engine) autoResolve(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance) error {
	start := time.Now()
	patches, err := e.patcher.ProposePatches(ctx, inst.Document, inst.Result.Issues)
	if err != nil {
		e.logger.Warn("field patcher unavailable, routing to review",
			zap.String("instance_id", inst.ID),
			zap.Error(err))
		inst.RequiresHumanReview = true
		return e.fire(ctx, m, inst, domainwf.TriggerRequestReview)
	}

	applied := 0
	for _, p := range patches {
		if inst.Document.Header.SetField(p.Field, p.Value) {
			applied++
		}
	}

	inst.AppendHistory(entity.StepRecord{
		Step:      entity.StepTriage,
		Status:    entity.StepCompleted,
		StartedAt: start,
		Duration:  time.Since(start),
		Metadata: map[string]string{
			"auto_resolve":    "attempted",
			"patches_applied": fmt.Sprintf("%d", applied),
		},
	})

	if applied == 0 {
		inst.RequiresHumanReview = true
		return e.fire(ctx, m, inst, domainwf.TriggerRequestReview)
	}

	e.logger.Info("applied field patches, re-validating",
		zap.String("instance_id", inst.ID),
		zap.Int("patches", applied))
	if err := e.runStep(ctx, inst, entity.StepValidation); err != nil {
		return e.handleFailure(ctx, m, inst, entity.StepValidation, start, time.Since(start), err)
	}
	return e.fire(ctx, m, inst, domainwf.TriggerResume)
}

func autoResolveAttempted(inst *entity.WorkflowInstance) bool {
	for _, rec := range inst.History {
		if rec.Metadata["auto_resolve"] == "attempted" {
			return true
		}
	}
	return false
}

// handleFailure applies the retry/review/escalate policy for one failed
// step.
func (e *Engine) handleFailure(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance, step entity.Step, start time.Time, duration time.Duration, stepErr error) error {
	class := classify(stepErr)
	inst.ErrorDetails = stepErr.Error()

	record := entity.StepRecord{
		Step:      step,
		StartedAt: start,
		Duration:  duration,
		Error:     stepErr.Error(),
		Metadata:  map[string]string{"failure_class": class.String()},
	}

	switch class {
	case FailureInput:
		// Retry cannot fix malformed input; a human can.
		record.Status = entity.StepFailed
		inst.AppendHistory(record)
		inst.RequiresHumanReview = true
		e.logger.Warn("step failed on input fault, routing to review",
			zap.String("instance_id", inst.ID),
			zap.String("step", string(step)),
			zap.Error(stepErr))
		return e.fire(ctx, m, inst, domainwf.TriggerRequestReview)

	case FailurePermanent:
		record.Status = entity.StepFailed
		inst.AppendHistory(record)
		e.logger.Error("step failed permanently",
			zap.String("instance_id", inst.ID),
			zap.String("step", string(step)),
			zap.Error(stepErr))
		return e.fire(ctx, m, inst, domainwf.TriggerFail)

	default: // transient
		// The retry budget is per instance; the strategy only shapes
		// the backoff curve.
		if inst.RetryCount >= inst.MaxRetries {
			record.Status = entity.StepFailed
			inst.AppendHistory(record)
			e.logger.Error("retries exhausted, escalating",
				zap.String("instance_id", inst.ID),
				zap.String("step", string(step)),
				zap.Int("retry_count", inst.RetryCount),
				zap.Error(stepErr))
			return e.fire(ctx, m, inst, domainwf.TriggerEscalate)
		}

		inst.RetryCount++
		inst.PreviousStep = step
		record.Status = entity.StepRetried
		record.Metadata["retry_count"] = fmt.Sprintf("%d", inst.RetryCount)
		inst.AppendHistory(record)

		if err := e.fire(ctx, m, inst, domainwf.TriggerRetry); err != nil {
			return err
		}
		e.logger.Warn("step failed, backing off before retry",
			zap.String("instance_id", inst.ID),
			zap.String("step", string(step)),
			zap.Int("retry_count", inst.RetryCount),
			zap.Duration("backoff", e.retry.Backoff(inst.RetryCount-1)),
			zap.Error(stepErr))
		return e.retry.Wait(ctx, inst.RetryCount-1)
	}
}

// fire executes a machine transition and persists the instance snapshot.
func (e *Engine) fire(ctx context.Context, m domainwf.StateMachine, inst *entity.WorkflowInstance, trigger domainwf.Trigger) error {
	if err := m.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("instance %s: %w", inst.ID, err)
	}
	inst.State = m.State()
	e.applyStatus(inst)
	return e.save(ctx, inst)
}

// applyStatus derives the coarse status from the machine state. The
// short-lived ready status (approved, staging pending) is set by route.
func (e *Engine) applyStatus(inst *entity.WorkflowInstance) {
	switch inst.State {
	case domainwf.StateRetry:
		inst.Status = entity.StatusRetry
	case domainwf.StateReview:
		inst.Status = entity.StatusException
	case domainwf.StateStaged:
		inst.Status = entity.StatusStaged
	case domainwf.StateEscalated:
		inst.Status = entity.StatusEscalated
	case domainwf.StateFailed:
		inst.Status = entity.StatusError
	default:
		inst.Status = entity.StatusProcessing
	}
}

func (e *Engine) save(ctx context.Context, inst *entity.WorkflowInstance) error {
	inst.UpdatedAt = time.Now().UTC()
	if err := e.instances.Update(ctx, inst); err != nil {
		return fmt.Errorf("persist instance %s: %w", inst.ID, err)
	}
	return nil
}

// ReviewVerdict is a human decision on a review-state instance.
type ReviewVerdict struct {
	Approve     bool              `json:"approve"`
	Corrections map[string]string `json:"corrections,omitempty"`
	Reviewer    string            `json:"reviewer"`
	Note        string            `json:"note,omitempty"`
}

// ApplyReview resumes a review-state instance with a human verdict.
// Approval applies corrections, re-runs validation and triage, and
// re-enters the triaged state; rejection hard-fails the instance.
func (e *Engine) ApplyReview(ctx context.Context, instanceID string, verdict ReviewVerdict) (*entity.WorkflowInstance, error) {
	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", instanceID, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("instance %s not found", instanceID)
	}
	if inst.State != domainwf.StateReview {
		return nil, fmt.Errorf("instance %s: %w", instanceID, ErrNotReviewable)
	}

	m := e.builder.Build(inst.State)
	start := time.Now()

	if !verdict.Approve {
		inst.AppendHistory(entity.StepRecord{
			Step:      entity.StepReview,
			Status:    entity.StepCompleted,
			StartedAt: start,
			Metadata:  map[string]string{"verdict": "rejected", "reviewer": verdict.Reviewer},
		})
		inst.ErrorDetails = verdict.Note
		if err := e.fire(ctx, m, inst, domainwf.TriggerFail); err != nil {
			return nil, err
		}
		return inst, nil
	}

	for field, value := range verdict.Corrections {
		inst.Document.Header.SetField(field, value)
	}
	inst.AppendHistory(entity.StepRecord{
		Step:      entity.StepReview,
		Status:    entity.StepCompleted,
		StartedAt: start,
		Duration:  time.Since(start),
		Metadata: map[string]string{
			"verdict":     "approved",
			"reviewer":    verdict.Reviewer,
			"corrections": fmt.Sprintf("%d", len(verdict.Corrections)),
		},
	})

	// Corrections invalidate the previous result: re-validate and
	// re-triage before re-entering the graph.
	if err := e.runStep(ctx, inst, entity.StepValidation); err != nil {
		return nil, err
	}
	if err := e.runStep(ctx, inst, entity.StepTriage); err != nil {
		return nil, err
	}
	if err := e.fire(ctx, m, inst, domainwf.TriggerResume); err != nil {
		return nil, err
	}
	if err := e.run(ctx, m, inst); err != nil {
		return nil, err
	}
	return inst, nil
}
