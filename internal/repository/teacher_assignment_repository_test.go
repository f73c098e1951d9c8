package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestTeacherAssignmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_section_assignments WHERE teacher_id = $1 AND section_id = $2")).
		WithArgs("teacher-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "teacher-1", "sec-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryExistsNotAssigned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_section_assignments WHERE teacher_id = $1 AND section_id = $2")).
		WithArgs("teacher-1", "sec-2").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.Exists(context.Background(), "teacher-1", "sec-2")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "section_id", "created_at"}).
		AddRow("ta-1", "teacher-1", "sec-1", time.Now()).
		AddRow("ta-2", "teacher-1", "sec-2", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_section_assignments WHERE teacher_id = $1 ORDER BY created_at")).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	assignments, err := repo.ListByTeacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	require.Equal(t, "sec-2", assignments[1].SectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}
