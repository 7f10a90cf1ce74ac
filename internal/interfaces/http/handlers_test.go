package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/entity"
	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
	domainwf "github.com/payables-ai/invoice-triage/internal/domain/workflow"
	"github.com/payables-ai/invoice-triage/internal/triage"
	"github.com/payables-ai/invoice-triage/internal/workflow"
)

type memInstances struct {
	byID map[string]*entity.WorkflowInstance
}

func newMemInstances() *memInstances {
	return &memInstances{byID: map[string]*entity.WorkflowInstance{}}
}

func (m *memInstances) Create(_ context.Context, inst *entity.WorkflowInstance) error {
	m.byID[inst.ID] = inst
	return nil
}

func (m *memInstances) Update(_ context.Context, inst *entity.WorkflowInstance) error {
	m.byID[inst.ID] = inst
	return nil
}

func (m *memInstances) GetByID(_ context.Context, id string) (*entity.WorkflowInstance, error) {
	return m.byID[id], nil
}

func (m *memInstances) ClaimPending(_ context.Context, _ int) ([]*entity.WorkflowInstance, error) {
	return nil, nil
}

type memResults struct {
	byInstance map[string]*domainval.Result
}

func newMemResults() *memResults {
	return &memResults{byInstance: map[string]*domainval.Result{}}
}

func (m *memResults) Save(_ context.Context, instanceID string, result *domainval.Result) error {
	m.byInstance[instanceID] = result
	return nil
}

func (m *memResults) GetLatest(_ context.Context, instanceID string) (*domainval.Result, error) {
	return m.byInstance[instanceID], nil
}

type passValidator struct{}

func (passValidator) Validate(_ context.Context, _ *document.DocumentData) *domainval.Result {
	return &domainval.Result{Passed: true, ConfidenceScore: 0.95, ValidatedAt: time.Now().UTC()}
}

type noopStager struct{}

func (noopStager) Stage(_ context.Context, _ *entity.WorkflowInstance) error { return nil }

type serverFixture struct {
	server    *Server
	instances *memInstances
	results   *memResults
}

func newServerFixture() *serverFixture {
	instances := newMemInstances()
	results := newMemResults()
	engine := workflow.NewEngine(
		nil,
		passValidator{},
		triage.NewEngine(0.90, 0.85),
		nil,
		instances,
		results,
		noopStager{},
		&workflow.RetryStrategy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		zap.NewNop(),
	)
	server := NewServer(DefaultServerConfig(), engine, instances, results, 3, zap.NewNop())
	return &serverFixture{server: server, instances: instances, results: results}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func submittedDocument() *document.DocumentData {
	return &document.DocumentData{
		Header: document.Header{
			VendorName:    "Acme Corp",
			InvoiceNumber: "INV-1001",
			Total:         "110.00",
		},
		Confidence: document.Confidence{Overall: 0.95},
	}
}

func TestHealthCheck(t *testing.T) {
	f := newServerFixture()
	rec, resp := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestSubmitInvoice(t *testing.T) {
	t.Run("accepted with pre-extracted document", func(t *testing.T) {
		f := newServerFixture()
		rec, resp := f.do(t, http.MethodPost, "/api/v1/invoices", SubmitInvoiceRequest{
			Document: submittedDocument(),
		})

		require.Equal(t, http.StatusAccepted, rec.Code)
		require.True(t, resp.Success)

		data := resp.Data.(map[string]any)
		id := data["id"].(string)
		assert.NotEmpty(t, id)
		assert.Equal(t, string(domainwf.StateReceived), data["state"])

		stored, err := f.instances.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, domainwf.StateReceived, stored.State)
	})

	t.Run("accepted with document path", func(t *testing.T) {
		f := newServerFixture()
		rec, _ := f.do(t, http.MethodPost, "/api/v1/invoices", SubmitInvoiceRequest{
			DocumentPath: "/inbox/inv.pdf",
		})
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("rejects empty submission", func(t *testing.T) {
		f := newServerFixture()
		rec, resp := f.do(t, http.MethodPost, "/api/v1/invoices", SubmitInvoiceRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		f := newServerFixture()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.server.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetInvoice(t *testing.T) {
	f := newServerFixture()

	inst := workflow.NewInstance("", submittedDocument(), 3)
	require.NoError(t, f.instances.Create(context.Background(), inst))

	rec, resp := f.do(t, http.MethodGet, "/api/v1/invoices/"+inst.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, inst.ID, data["id"])

	rec, _ = f.do(t, http.MethodGet, "/api/v1/invoices/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetValidationResult(t *testing.T) {
	f := newServerFixture()

	require.NoError(t, f.results.Save(context.Background(), "inst-1", &domainval.Result{
		Passed:          true,
		ConfidenceScore: 0.91,
	}))

	rec, resp := f.do(t, http.MethodGet, "/api/v1/invoices/inst-1/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["passed"])

	rec, _ = f.do(t, http.MethodGet, "/api/v1/invoices/inst-2/result", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitReview(t *testing.T) {
	t.Run("approval resumes and stages the instance", func(t *testing.T) {
		f := newServerFixture()

		inst := workflow.NewInstance("", submittedDocument(), 3)
		inst.State = domainwf.StateReview
		inst.Status = entity.StatusException
		require.NoError(t, f.instances.Create(context.Background(), inst))

		rec, resp := f.do(t, http.MethodPost, "/api/v1/invoices/"+inst.ID+"/review", workflow.ReviewVerdict{
			Approve:  true,
			Reviewer: "ap-clerk",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		data := resp.Data.(map[string]any)
		assert.Equal(t, string(domainwf.StateStaged), data["state"])
	})

	t.Run("conflict when instance is not awaiting review", func(t *testing.T) {
		f := newServerFixture()

		inst := workflow.NewInstance("", submittedDocument(), 3)
		require.NoError(t, f.instances.Create(context.Background(), inst))

		rec, resp := f.do(t, http.MethodPost, "/api/v1/invoices/"+inst.ID+"/review", workflow.ReviewVerdict{
			Approve: true,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.False(t, resp.Success)
	})
}
