package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-enroll-api/internal/models"
)

func sectionDetailRows(details ...models.SectionDetail) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "subject_id", "teacher_id", "name", "academic_year", "semester", "room", "capacity", "is_active", "created_at", "updated_at",
		"subject_code", "subject_name", "teacher_name", "enrolled_count", "available_seats",
	})
	for _, d := range details {
		rows.AddRow(d.ID, d.SubjectID, d.TeacherID, d.Name, d.AcademicYear, d.Semester, d.Room, d.Capacity, d.IsActive, d.CreatedAt, d.UpdatedAt,
			d.SubjectCode, d.SubjectName, d.TeacherName, d.EnrolledCount, d.AvailableSeats)
	}
	return rows
}

func TestSectionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "subject_id", "teacher_id", "name", "academic_year", "semester", "room", "capacity", "is_active", "created_at", "updated_at"}).
		AddRow("sec-1", "sub-1", nil, "Section A", "2026/2027", "1", nil, 30, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE id = $1")).
		WithArgs("sec-1").
		WillReturnRows(rows)

	section, err := repo.FindByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, 30, section.Capacity)
	require.True(t, section.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	detail := models.SectionDetail{
		Section: models.Section{
			ID: "sec-1", SubjectID: "sub-1", Name: "Section A",
			AcademicYear: "2026/2027", Semester: "1", Capacity: 30, IsActive: true,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		},
		SubjectCode: "CS101", SubjectName: "Programming",
		EnrolledCount: 12, AvailableSeats: 18,
	}
	mock.ExpectQuery(regexp.QuoteMeta("AS enrolled_count")).
		WithArgs("sec-1").
		WillReturnRows(sectionDetailRows(detail))

	got, err := repo.FindDetailByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, 12, got.EnrolledCount)
	require.Equal(t, 18, got.AvailableSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListAvailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	detail := models.SectionDetail{
		Section: models.Section{
			ID: "sec-1", SubjectID: "sub-1", Name: "Section A",
			AcademicYear: "2026/2027", Semester: "1", Capacity: 30, IsActive: true,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		},
		SubjectCode: "CS101", SubjectName: "Programming",
		EnrolledCount: 5, AvailableSeats: 25,
	}
	mock.ExpectQuery(regexp.QuoteMeta("s.academic_year = $1 AND s.semester = $2")).
		WithArgs("2026/2027", "1").
		WillReturnRows(sectionDetailRows(detail))

	sections, err := repo.ListAvailable(context.Background(), models.SectionFilter{AcademicYear: "2026/2027", Semester: "1"})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, 25, sections[0].AvailableSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}
