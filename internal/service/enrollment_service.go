package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-enroll-api/internal/models"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentRequestDetail, error)
	FindActiveRequest(ctx context.Context, studentID, sectionID string) (*models.EnrollmentRequest, error)
	ListPending(ctx context.Context, filter models.PendingFilter) ([]models.EnrollmentRequestDetail, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.EnrollmentRequest, error)
	Insert(ctx context.Context, request *models.EnrollmentRequest) error
	ApproveWithinCapacity(ctx context.Context, id, sectionID string, capacity int, decidedBy string, decidedAt time.Time) (bool, error)
	RejectIfPending(ctx context.Context, id, decidedBy string, decidedAt time.Time) (bool, error)
	DropIfApproved(ctx context.Context, id, decidedBy string, decidedAt time.Time) (bool, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type assignmentChecker interface {
	Exists(ctx context.Context, teacherID, sectionID string) (bool, error)
}

type notificationEmitter interface {
	Emit(event models.NotificationEvent)
}

// SubmitEnrollmentRequest describes a student's submission.
type SubmitEnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// BulkApproveRequest carries the candidate request ids.
type BulkApproveRequest struct {
	RequestIDs []string `json:"request_ids" validate:"required,min=1"`
}

// EnrollmentService is the enrollment state machine. Every transition is
// guarded here: submission rules, the decision policy, and the capacity
// check that must share a critical section with the approval write.
type EnrollmentService struct {
	repo         enrollmentRepository
	sectionsRepo sectionReader
	sections     *SectionService
	capacity     *CapacityService
	assignments  assignmentChecker
	notifier     notificationEmitter
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	bulkMaxBatch int

	// sectionLocks serialises the capacity check and the approval write
	// per section. The SQL capacity guard backs this up across processes.
	sectionLocks sync.Map
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, sectionsRepo sectionReader, sections *SectionService, capacity *CapacityService, assignments assignmentChecker, notifier notificationEmitter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, bulkMaxBatch int) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bulkMaxBatch <= 0 {
		bulkMaxBatch = 100
	}
	return &EnrollmentService{
		repo:         repo,
		sectionsRepo: sectionsRepo,
		sections:     sections,
		capacity:     capacity,
		assignments:  assignments,
		notifier:     notifier,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		bulkMaxBatch: bulkMaxBatch,
	}
}

func (s *EnrollmentService) sectionLock(sectionID string) *sync.Mutex {
	lock, _ := s.sectionLocks.LoadOrStore(sectionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// canDecide centralises the decision policy: admins always, teachers only
// for sections they are assigned to.
func (s *EnrollmentService) canDecide(ctx context.Context, actor *models.JWTClaims, sectionID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	case models.RoleTeacher:
		assigned, err := s.assignments.Exists(ctx, actor.UserID, sectionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section assignment")
		}
		if !assigned {
			return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this section")
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "role may not decide enrollments")
	}
}

// Submit creates a pending request. Capacity is deliberately not checked:
// requests past capacity queue and compete for seats at approval time.
func (s *EnrollmentService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitEnrollmentRequest) (*models.EnrollmentRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleStudent && actor.UserID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only enroll themselves")
	}

	section, err := s.sectionsRepo.FindByID(ctx, req.SectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !s.sections.AcceptingEnrollment(section) {
		return nil, appErrors.Clone(appErrors.ErrSectionClosed, "section is not accepting enrollment")
	}

	active, err := s.repo.FindActiveRequest(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}
	if active != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRequest, "an active request already exists for this section")
	}

	request := &models.EnrollmentRequest{
		StudentID:   req.StudentID,
		SectionID:   req.SectionID,
		Status:      models.EnrollmentStatusPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment request")
	}

	detail, err := s.repo.FindDetailByID(ctx, request.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// Approve transitions a pending request to approved, re-checking capacity
// inside the section's critical section.
func (s *EnrollmentService) Approve(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.canDecide(ctx, actor, request.SectionID); err != nil {
		return nil, err
	}

	if err := s.approveOne(ctx, actor, requestID, request.SectionID); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// approveOne performs the guarded pending→approved transition and, on
// commit, the post-decision side effects. Callers have already applied
// the decision policy.
func (s *EnrollmentService) approveOne(ctx context.Context, actor *models.JWTClaims, requestID, sectionID string) error {
	lock := s.sectionLock(sectionID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read inside the lock: the request may have been decided while
	// this call waited.
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status != models.EnrollmentStatusPending {
		s.metrics.RecordDecision("invalid_state")
		return appErrors.Clone(appErrors.ErrInvalidState, "request is not pending")
	}

	snapshot, err := s.capacity.Snapshot(ctx, sectionID)
	if err != nil {
		return err
	}
	if snapshot.AvailableSeats == 0 {
		s.metrics.RecordDecision("seat_unavailable")
		return appErrors.Clone(appErrors.ErrSeatUnavailable, "section has no remaining seats")
	}

	now := time.Now().UTC()
	committed, err := s.repo.ApproveWithinCapacity(ctx, requestID, sectionID, snapshot.Capacity, actor.UserID, now)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}
	if !committed {
		// Lost a race with another process: classify by the current row.
		current, err := s.repo.FindByID(ctx, requestID)
		if err == nil && current.Status != models.EnrollmentStatusPending {
			s.metrics.RecordDecision("invalid_state")
			return appErrors.Clone(appErrors.ErrInvalidState, "request was already decided")
		}
		s.metrics.RecordDecision("seat_unavailable")
		return appErrors.Clone(appErrors.ErrSeatUnavailable, "section has no remaining seats")
	}

	s.metrics.RecordDecision("approved")
	s.metrics.SetAvailableSeats(sectionID, snapshot.AvailableSeats-1)
	s.sections.InvalidateAvailability(ctx)
	s.notifier.Emit(models.NotificationEvent{
		RequestID: requestID,
		StudentID: request.StudentID,
		SectionID: sectionID,
		Kind:      models.NotificationEnrollmentApproved,
	})
	return nil
}

// Reject transitions a pending request to rejected. Rejected is terminal:
// a second reject reports the conflict instead of silently succeeding.
func (s *EnrollmentService) Reject(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.canDecide(ctx, actor, request.SectionID); err != nil {
		return nil, err
	}

	committed, err := s.repo.RejectIfPending(ctx, requestID, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}
	if !committed {
		s.metrics.RecordDecision("invalid_state")
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not pending")
	}

	s.metrics.RecordDecision("rejected")
	s.notifier.Emit(models.NotificationEvent{
		RequestID: requestID,
		StudentID: request.StudentID,
		SectionID: request.SectionID,
		Kind:      models.NotificationEnrollmentRejected,
	})

	detail, err := s.repo.FindDetailByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// BulkApprove approves as many candidates as capacity allows, in
// submission order regardless of the order ids were passed in. It never
// hard-fails: every id gets an outcome.
func (s *EnrollmentService) BulkApprove(ctx context.Context, actor *models.JWTClaims, req BulkApproveRequest) (*models.BulkApproveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk approve payload")
	}
	if len(req.RequestIDs) > s.bulkMaxBatch {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bulk approve batch too large")
	}

	candidates, err := s.repo.ListByIDs(ctx, req.RequestIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidates")
	}

	found := make(map[string]models.EnrollmentRequest, len(candidates))
	for _, candidate := range candidates {
		found[candidate.ID] = candidate
	}

	result := &models.BulkApproveResult{Approved: []string{}, Skipped: []models.BulkSkip{}}
	for _, id := range req.RequestIDs {
		if _, ok := found[id]; !ok {
			result.Skipped = append(result.Skipped, models.BulkSkip{RequestID: id, Reason: appErrors.ErrNotFound.Code})
		}
	}

	// FIFO seat allocation: earliest submissions win the remaining seats.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RequestedAt.Equal(candidates[j].RequestedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].RequestedAt.Before(candidates[j].RequestedAt)
	})

	for _, candidate := range candidates {
		if err := s.canDecide(ctx, actor, candidate.SectionID); err != nil {
			result.Skipped = append(result.Skipped, models.BulkSkip{RequestID: candidate.ID, Reason: appErrors.FromError(err).Code})
			continue
		}
		if err := s.approveOne(ctx, actor, candidate.ID, candidate.SectionID); err != nil {
			result.Skipped = append(result.Skipped, models.BulkSkip{RequestID: candidate.ID, Reason: appErrors.FromError(err).Code})
			continue
		}
		result.Approved = append(result.Approved, candidate.ID)
	}
	return result, nil
}

// Drop releases an approved seat. Administrative override only; the seat
// count is derived, so the transition alone frees the seat.
func (s *EnrollmentService) Drop(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.EnrollmentRequestDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may drop enrollments")
	}

	committed, err := s.repo.DropIfApproved(ctx, requestID, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	if !committed {
		current, err := s.repo.FindByID(ctx, requestID)
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		if err == nil && current.Status != models.EnrollmentStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "only approved enrollments can be dropped")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}

	s.metrics.RecordDecision("dropped")
	s.sections.InvalidateAvailability(ctx)

	detail, err := s.repo.FindDetailByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request detail")
	}
	return detail, nil
}

// List returns enrollment requests with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequestDetail, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return requests, pagination, nil
}

// ListPending returns the FIFO pending queue. Teacher actors are scoped
// to their assigned sections.
func (s *EnrollmentService) ListPending(ctx context.Context, actor *models.JWTClaims, filter models.PendingFilter) ([]models.EnrollmentRequestDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	requests, err := s.repo.ListPending(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return requests, nil
}
