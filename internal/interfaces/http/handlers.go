package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	"github.com/payables-ai/invoice-triage/internal/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine     *workflow.Engine
	instances  port.InstanceRepository
	results    port.ResultRepository
	maxRetries int
	logger     *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine *workflow.Engine,
	instances port.InstanceRepository,
	results port.ResultRepository,
	maxRetries int,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		engine:     engine,
		instances:  instances,
		results:    results,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SubmitInvoiceRequest accepts either a file path to extract from or a
// pre-extracted document.
type SubmitInvoiceRequest struct {
	DocumentPath string                 `json:"document_path"`
	Document     *document.DocumentData `json:"document"`
}

// InstanceResponse represents a workflow instance in API responses
type InstanceResponse struct {
	ID                  string              `json:"id"`
	DocumentPath        string              `json:"document_path,omitempty"`
	State               string              `json:"state"`
	Status              string              `json:"status"`
	CurrentStep         string              `json:"current_step"`
	RetryCount          int                 `json:"retry_count"`
	RequiresHumanReview bool                `json:"requires_human_review"`
	Outcome             string              `json:"outcome,omitempty"`
	Reason              string              `json:"reason,omitempty"`
	ErrorDetails        string              `json:"error_details,omitempty"`
	History             []entity.StepRecord `json:"history"`
	CreatedAt           string              `json:"created_at"`
	UpdatedAt           string              `json:"updated_at"`
}

func toInstanceResponse(inst *entity.WorkflowInstance) InstanceResponse {
	return InstanceResponse{
		ID:                  inst.ID,
		DocumentPath:        inst.DocumentPath,
		State:               string(inst.State),
		Status:              string(inst.Status),
		CurrentStep:         string(inst.CurrentStep),
		RetryCount:          inst.RetryCount,
		RequiresHumanReview: inst.RequiresHumanReview,
		Outcome:             inst.Outcome,
		Reason:              inst.Reason,
		ErrorDetails:        inst.ErrorDetails,
		History:             inst.History,
		CreatedAt:           inst.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           inst.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// SubmitInvoice handles POST /api/v1/invoices. The instance is created in
// the received state; a background worker claims and processes it.
func (h *Handlers) SubmitInvoice(c *gin.Context) {
	var req SubmitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}
	if req.DocumentPath == "" && req.Document == nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "document_path or document is required",
		})
		return
	}

	inst := workflow.NewInstance(req.DocumentPath, req.Document, h.maxRetries)
	if err := h.instances.Create(c.Request.Context(), inst); err != nil {
		h.logger.Error("Failed to create instance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to create instance",
		})
		return
	}

	h.logger.Info("Invoice submitted",
		zap.String("instance_id", inst.ID),
		zap.String("document_path", inst.DocumentPath))

	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    toInstanceResponse(inst),
	})
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id := c.Param("id")

	inst, err := h.instances.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get instance", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to get instance",
		})
		return
	}
	if inst == nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "instance not found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toInstanceResponse(inst),
	})
}

// GetValidationResult handles GET /api/v1/invoices/:id/result
func (h *Handlers) GetValidationResult(c *gin.Context) {
	id := c.Param("id")

	result, err := h.results.GetLatest(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get validation result", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to get validation result",
		})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "no validation result for instance",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// SubmitReview handles POST /api/v1/invoices/:id/review
func (h *Handlers) SubmitReview(c *gin.Context) {
	id := c.Param("id")

	var verdict workflow.ReviewVerdict
	if err := c.ShouldBindJSON(&verdict); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid review body",
		})
		return
	}

	inst, err := h.engine.ApplyReview(c.Request.Context(), id, verdict)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrNotReviewable):
			c.JSON(http.StatusConflict, Response{
				Success: false,
				Error:   "instance is not awaiting review",
			})
		default:
			h.logger.Error("Failed to apply review", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "failed to apply review",
			})
		}
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toInstanceResponse(inst),
	})
}
