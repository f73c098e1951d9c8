package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-enroll-api/internal/models"
)

// TeacherAssignmentRepository reads the teacher-to-section roster used by
// the decision policy.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// Exists reports whether the teacher is assigned to the section.
func (r *TeacherAssignmentRepository) Exists(ctx context.Context, teacherID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_section_assignments WHERE teacher_id = $1 AND section_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return true, nil
}

// ListByTeacher returns the sections assigned to a teacher.
func (r *TeacherAssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAssignment, error) {
	const query = `SELECT id, teacher_id, section_id, created_at
        FROM teacher_section_assignments WHERE teacher_id = $1 ORDER BY created_at`
	var assignments []models.TeacherAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}
