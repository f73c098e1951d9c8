package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-enroll-api/internal/models"
	"github.com/noah-isme/college-enroll-api/internal/service"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
	"github.com/noah-isme/college-enroll-api/pkg/response"
)

type enrollmentService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req service.SubmitEnrollmentRequest) (*models.EnrollmentRequestDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequestDetail, *models.Pagination, error)
	ListPending(ctx context.Context, actor *models.JWTClaims, filter models.PendingFilter) ([]models.EnrollmentRequestDetail, error)
	Approve(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error)
	Reject(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error)
	BulkApprove(ctx context.Context, actor *models.JWTClaims, req service.BulkApproveRequest) (*models.BulkApproveResult, error)
	Drop(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error)
}

// EnrollmentHandler exposes enrollment request endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Submit godoc
// @Summary Submit an enrollment request
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.SubmitEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var req service.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.enrollments.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List enrollment requests
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param sectionId query string false "Filter by section"
// @Param status query string false "Filter by status"
// @Param academicYear query string false "Filter by academic year"
// @Param semester query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.SectionID = c.Query("sectionId")
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	filter.AcademicYear = c.Query("academicYear")
	filter.Semester = c.Query("semester")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	requests, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// ListPending godoc
// @Summary List pending requests in submission order
// @Tags Enrollments
// @Produce json
// @Param sectionId query string false "Filter by section"
// @Param academicYear query string false "Filter by academic year"
// @Param semester query string false "Filter by semester"
// @Success 200 {object} response.Envelope
// @Router /enrollments/pending [get]
func (h *EnrollmentHandler) ListPending(c *gin.Context) {
	filter := models.PendingFilter{
		SectionID:    c.Query("sectionId"),
		AcademicYear: c.Query("academicYear"),
		Semester:     c.Query("semester"),
	}
	requests, err := h.enrollments.ListPending(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Enrollments
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	request, err := h.enrollments.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Enrollments
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	request, err := h.enrollments.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// BulkApprove godoc
// @Summary Approve pending requests in submission order
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.BulkApproveRequest true "Candidate request ids"
// @Success 200 {object} response.Envelope
// @Router /enrollments/bulk-approve [post]
func (h *EnrollmentHandler) BulkApprove(c *gin.Context) {
	var req service.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.BulkApprove(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Drop godoc
// @Summary Drop an approved enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	request, err := h.enrollments.Drop(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
