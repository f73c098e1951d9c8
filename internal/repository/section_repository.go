package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-enroll-api/internal/models"
)

// SectionRepository reads section records owned by the catalog service.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, subject_id, teacher_id, name, academic_year, semester, room, capacity, is_active, created_at, updated_at
        FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section with subject context and derived seat
// counts. The enrolled count is recomputed from approved requests on every
// read.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT s.id, s.subject_id, s.teacher_id, s.name, s.academic_year, s.semester, s.room, s.capacity, s.is_active, s.created_at, s.updated_at,
        sub.code AS subject_code, sub.name AS subject_name, u.full_name AS teacher_name,
        (SELECT COUNT(*) FROM enrollment_requests e WHERE e.section_id = s.id AND e.status = 'APPROVED') AS enrolled_count,
        GREATEST(s.capacity - (SELECT COUNT(*) FROM enrollment_requests e WHERE e.section_id = s.id AND e.status = 'APPROVED'), 0) AS available_seats
        FROM sections s
        JOIN subjects sub ON sub.id = s.subject_id
        LEFT JOIN users u ON u.id = s.teacher_id
        WHERE s.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListAvailable returns active sections that still have seats.
func (r *SectionRepository) ListAvailable(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	base := `SELECT s.id, s.subject_id, s.teacher_id, s.name, s.academic_year, s.semester, s.room, s.capacity, s.is_active, s.created_at, s.updated_at,
        sub.code AS subject_code, sub.name AS subject_name, u.full_name AS teacher_name,
        (SELECT COUNT(*) FROM enrollment_requests e WHERE e.section_id = s.id AND e.status = 'APPROVED') AS enrolled_count,
        GREATEST(s.capacity - (SELECT COUNT(*) FROM enrollment_requests e WHERE e.section_id = s.id AND e.status = 'APPROVED'), 0) AS available_seats
        FROM sections s
        JOIN subjects sub ON sub.id = s.subject_id
        LEFT JOIN users u ON u.id = s.teacher_id
        WHERE s.is_active = TRUE`

	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("s.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += ` AND s.capacity > (SELECT COUNT(*) FROM enrollment_requests e WHERE e.section_id = s.id AND e.status = 'APPROVED')
        ORDER BY sub.name, s.name`

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list available sections: %w", err)
	}
	return sections, nil
}
