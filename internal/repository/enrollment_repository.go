package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-enroll-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollment requests. It is a
// plain ledger: each method is a single atomic statement, and the decision
// to call a mutating method safely belongs to the service layer.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const detailColumns = `e.id, e.student_id, e.section_id, e.status, e.requested_at, e.decided_at, e.decided_by,
        u.full_name AS student_name, u.email AS student_email,
        s.name AS section_name, s.academic_year, s.semester,
        sub.code AS subject_code, sub.name AS subject_name`

const detailJoins = `FROM enrollment_requests e
JOIN users u ON u.id = e.student_id
JOIN sections s ON s.id = e.section_id
JOIN subjects sub ON sub.id = s.subject_id`

// List returns enrollment requests filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequestDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"requested_at": "e.requested_at",
		"student_name": "u.full_name",
		"section_name": "s.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.requested_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d",
		detailColumns, detailJoins, clause, orderBy, order, size, offset)

	var requests []models.EnrollmentRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", detailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment requests: %w", err)
	}
	return requests, total, nil
}

// FindByID returns a request by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	const query = `SELECT id, student_id, section_id, status, requested_at, decided_at, decided_by
        FROM enrollment_requests WHERE id = $1`
	var request models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindDetailByID returns a request with student and section context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentRequestDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", detailColumns, detailJoins)
	var detail models.EnrollmentRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveRequest returns the pending or approved request for the pair,
// or nil when none exists.
func (r *EnrollmentRepository) FindActiveRequest(ctx context.Context, studentID, sectionID string) (*models.EnrollmentRequest, error) {
	const query = `SELECT id, student_id, section_id, status, requested_at, decided_at, decided_by
        FROM enrollment_requests
        WHERE student_id = $1 AND section_id = $2 AND status IN ($3, $4)
        LIMIT 1`
	var request models.EnrollmentRequest
	err := r.db.GetContext(ctx, &request, query, studentID, sectionID, models.EnrollmentStatusPending, models.EnrollmentStatusApproved)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active request: %w", err)
	}
	return &request, nil
}

// CountApproved returns the number of approved requests for a section.
func (r *EnrollmentRepository) CountApproved(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollment_requests WHERE section_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, models.EnrollmentStatusApproved); err != nil {
		return 0, fmt.Errorf("count approved requests: %w", err)
	}
	return count, nil
}

// ListPending returns pending requests in submission order. The ordering
// is what makes bulk approval allocate seats first-come first-served.
func (r *EnrollmentRepository) ListPending(ctx context.Context, filter models.PendingFilter) ([]models.EnrollmentRequestDetail, error) {
	conditions := []string{"e.status = 'PENDING'"}
	var args []interface{}

	joins := detailJoins
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.TeacherID != "" {
		joins += "\nJOIN teacher_section_assignments ta ON ta.section_id = e.section_id"
		conditions = append(conditions, fmt.Sprintf("ta.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY e.requested_at ASC",
		detailColumns, joins, strings.Join(conditions, " AND "))

	var requests []models.EnrollmentRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// ListByIDs loads requests for the provided ids, chunked to keep statement
// sizes bounded.
func (r *EnrollmentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.EnrollmentRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const chunkSize = 100
	requests := make([]models.EnrollmentRequest, 0, len(ids))
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf(`SELECT id, student_id, section_id, status, requested_at, decided_at, decided_by
            FROM enrollment_requests WHERE id IN (%s)`, strings.Join(placeholders, ","))
		var batch []models.EnrollmentRequest
		if err := r.db.SelectContext(ctx, &batch, query, args...); err != nil {
			return nil, fmt.Errorf("load requests by id: %w", err)
		}
		requests = append(requests, batch...)
	}
	return requests, nil
}

// Insert persists a new pending request.
func (r *EnrollmentRepository) Insert(ctx context.Context, request *models.EnrollmentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.EnrollmentStatusPending
	}
	const query = `INSERT INTO enrollment_requests (id, student_id, section_id, status, requested_at, decided_at, decided_by)
        VALUES (:id, :student_id, :section_id, :status, :requested_at, :decided_at, :decided_by)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("insert enrollment request: %w", err)
	}
	return nil
}

// ApproveWithinCapacity flips a pending request to approved only while the
// section's approved count stays below capacity. The capacity guard runs
// inside the statement so the database re-checks the invariant even when
// two processes race for the last seat. The returned bool reports whether
// the row was updated.
func (r *EnrollmentRepository) ApproveWithinCapacity(ctx context.Context, id, sectionID string, capacity int, decidedBy string, decidedAt time.Time) (bool, error) {
	const query = `UPDATE enrollment_requests SET status = 'APPROVED', decided_by = $2, decided_at = $3
        WHERE id = $1 AND status = 'PENDING'
        AND (SELECT COUNT(*) FROM enrollment_requests a WHERE a.section_id = $4 AND a.status = 'APPROVED') < $5`
	res, err := r.db.ExecContext(ctx, query, id, decidedBy, decidedAt, sectionID, capacity)
	if err != nil {
		return false, fmt.Errorf("approve request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve request result: %w", err)
	}
	return affected == 1, nil
}

// RejectIfPending flips a pending request to rejected. Returns false when
// the request was already decided.
func (r *EnrollmentRepository) RejectIfPending(ctx context.Context, id, decidedBy string, decidedAt time.Time) (bool, error) {
	const query = `UPDATE enrollment_requests SET status = 'REJECTED', decided_by = $2, decided_at = $3
        WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, decidedBy, decidedAt)
	if err != nil {
		return false, fmt.Errorf("reject request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject request result: %w", err)
	}
	return affected == 1, nil
}

// DropIfApproved releases an approved seat. The seat count is derived, so
// the transition alone reopens capacity.
func (r *EnrollmentRepository) DropIfApproved(ctx context.Context, id, decidedBy string, decidedAt time.Time) (bool, error) {
	const query = `UPDATE enrollment_requests SET status = 'DROPPED', decided_by = $2, decided_at = $3
        WHERE id = $1 AND status = 'APPROVED'`
	res, err := r.db.ExecContext(ctx, query, id, decidedBy, decidedAt)
	if err != nil {
		return false, fmt.Errorf("drop request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop request result: %w", err)
	}
	return affected == 1, nil
}
