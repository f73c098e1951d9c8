package models

import "time"

// Section is a scheduled offering of a subject for a term with a fixed
// seat capacity. Sections are owned by the catalog service; this service
// only reads them.
type Section struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Name         string    `db:"name" json:"name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     string    `db:"semester" json:"semester"`
	Room         *string   `db:"room" json:"room,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches Section with catalog context and derived seat
// counts. EnrolledCount is always computed from approved requests, never
// stored.
type SectionDetail struct {
	Section
	SubjectCode    string  `db:"subject_code" json:"subject_code"`
	SubjectName    string  `db:"subject_name" json:"subject_name"`
	TeacherName    *string `db:"teacher_name" json:"teacher_name,omitempty"`
	EnrolledCount  int     `db:"enrolled_count" json:"enrolled_count"`
	AvailableSeats int     `db:"available_seats" json:"available_seats"`
}

// SectionFilter captures supported filters for listing sections.
type SectionFilter struct {
	AcademicYear string
	Semester     string
	SubjectID    string
}

// CapacitySnapshot is the derived seat state of a section as of a single
// read. It is never cached across a decision boundary.
type CapacitySnapshot struct {
	SectionID      string `json:"section_id"`
	Capacity       int    `json:"capacity"`
	EnrolledCount  int    `json:"enrolled_count"`
	AvailableSeats int    `json:"available_seats"`
}

// TeacherAssignment links a teacher to a section they may decide for.
type TeacherAssignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
