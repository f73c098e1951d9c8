package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-enroll-api/internal/middleware"
	"github.com/noah-isme/college-enroll-api/internal/models"
	"github.com/noah-isme/college-enroll-api/internal/service"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
	"github.com/noah-isme/college-enroll-api/pkg/response"
)

type enrollmentServiceMock struct {
	submitResp  *models.EnrollmentRequestDetail
	submitErr   error
	listResp    []models.EnrollmentRequestDetail
	listErr     error
	pendingResp []models.EnrollmentRequestDetail
	approveResp *models.EnrollmentRequestDetail
	approveErr  error
	rejectResp  *models.EnrollmentRequestDetail
	rejectErr   error
	bulkResp    *models.BulkApproveResult
	bulkErr     error
	dropResp    *models.EnrollmentRequestDetail
	dropErr     error

	lastSubmit service.SubmitEnrollmentRequest
	lastFilter models.EnrollmentFilter
	lastActor  *models.JWTClaims
	lastID     string
}

func (m *enrollmentServiceMock) Submit(ctx context.Context, actor *models.JWTClaims, req service.SubmitEnrollmentRequest) (*models.EnrollmentRequestDetail, error) {
	m.lastActor = actor
	m.lastSubmit = req
	return m.submitResp, m.submitErr
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequestDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *enrollmentServiceMock) ListPending(ctx context.Context, actor *models.JWTClaims, filter models.PendingFilter) ([]models.EnrollmentRequestDetail, error) {
	m.lastActor = actor
	return m.pendingResp, nil
}

func (m *enrollmentServiceMock) Approve(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error) {
	m.lastActor = actor
	m.lastID = requestID
	return m.approveResp, m.approveErr
}

func (m *enrollmentServiceMock) Reject(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error) {
	m.lastActor = actor
	m.lastID = requestID
	return m.rejectResp, m.rejectErr
}

func (m *enrollmentServiceMock) BulkApprove(ctx context.Context, actor *models.JWTClaims, req service.BulkApproveRequest) (*models.BulkApproveResult, error) {
	m.lastActor = actor
	return m.bulkResp, m.bulkErr
}

func (m *enrollmentServiceMock) Drop(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error) {
	m.lastActor = actor
	m.lastID = requestID
	return m.dropResp, m.dropErr
}

func testContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestEnrollmentHandlerSubmit(t *testing.T) {
	mockSvc := &enrollmentServiceMock{
		submitResp: &models.EnrollmentRequestDetail{
			EnrollmentRequest: models.EnrollmentRequest{ID: "req-1", Status: models.EnrollmentStatusPending},
		},
	}
	h := NewEnrollmentHandler(mockSvc)

	body, _ := json.Marshal(service.SubmitEnrollmentRequest{StudentID: "stu-1", SectionID: "sec-1"})
	c, w := testContext(t, http.MethodPost, "/enrollments", body, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", mockSvc.lastSubmit.StudentID)
	assert.Equal(t, "stu-1", mockSvc.lastActor.UserID)
}

func TestEnrollmentHandlerSubmitInvalidBody(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := testContext(t, http.MethodPost, "/enrollments", []byte(`{"student_id":`), &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerSubmitConflict(t *testing.T) {
	mockSvc := &enrollmentServiceMock{submitErr: appErrors.ErrDuplicateRequest}
	h := NewEnrollmentHandler(mockSvc)

	body, _ := json.Marshal(service.SubmitEnrollmentRequest{StudentID: "stu-1", SectionID: "sec-1"})
	c, w := testContext(t, http.MethodPost, "/enrollments", body, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	h.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrDuplicateRequest.Code, envelope.Error.Code)
}

func TestEnrollmentHandlerListParsesFilters(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/enrollments?studentId=stu-1&status=pending&page=2&limit=10", nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", mockSvc.lastFilter.StudentID)
	assert.Equal(t, models.EnrollmentStatusPending, mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
}

func TestEnrollmentHandlerApprove(t *testing.T) {
	mockSvc := &enrollmentServiceMock{
		approveResp: &models.EnrollmentRequestDetail{
			EnrollmentRequest: models.EnrollmentRequest{ID: "req-1", Status: models.EnrollmentStatusApproved},
		},
	}
	h := NewEnrollmentHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/enrollments/req-1/approve", nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", mockSvc.lastID)
}

func TestEnrollmentHandlerApproveSeatUnavailable(t *testing.T) {
	mockSvc := &enrollmentServiceMock{approveErr: appErrors.ErrSeatUnavailable}
	h := NewEnrollmentHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/enrollments/req-1/approve", nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Approve(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestEnrollmentHandlerBulkApprove(t *testing.T) {
	mockSvc := &enrollmentServiceMock{
		bulkResp: &models.BulkApproveResult{
			Approved: []string{"req-1"},
			Skipped:  []models.BulkSkip{{RequestID: "req-2", Reason: appErrors.ErrSeatUnavailable.Code}},
		},
	}
	h := NewEnrollmentHandler(mockSvc)

	body, _ := json.Marshal(service.BulkApproveRequest{RequestIDs: []string{"req-1", "req-2"}})
	c, w := testContext(t, http.MethodPost, "/enrollments/bulk-approve", body, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	h.BulkApprove(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.BulkApproveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"req-1"}, envelope.Data.Approved)
	require.Len(t, envelope.Data.Skipped, 1)
}

func TestEnrollmentHandlerDrop(t *testing.T) {
	mockSvc := &enrollmentServiceMock{
		dropResp: &models.EnrollmentRequestDetail{
			EnrollmentRequest: models.EnrollmentRequest{ID: "req-1", Status: models.EnrollmentStatusDropped},
		},
	}
	h := NewEnrollmentHandler(mockSvc)

	c, w := testContext(t, http.MethodDelete, "/enrollments/req-1", nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	h.Drop(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", mockSvc.lastID)
}
