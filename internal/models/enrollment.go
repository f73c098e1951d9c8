package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment request.
type EnrollmentStatus string

// Possible request statuses. PENDING is the only non-terminal state;
// DROPPED is the administrative release of an approved seat.
const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected EnrollmentStatus = "REJECTED"
	EnrollmentStatusDropped  EnrollmentStatus = "DROPPED"
)

// EnrollmentRequest is a student's ask to occupy a seat in a section.
// At most one request per (student, section) may be pending or approved
// at a time.
type EnrollmentRequest struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	SectionID   string           `db:"section_id" json:"section_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	RequestedAt time.Time        `db:"requested_at" json:"requested_at"`
	DecidedAt   *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy   *string          `db:"decided_by" json:"decided_by,omitempty"`
}

// EnrollmentRequestDetail enriches a request with student and section info.
type EnrollmentRequestDetail struct {
	EnrollmentRequest
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	SectionName  string `db:"section_name" json:"section_name"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
	Semester     string `db:"semester" json:"semester"`
}

// EnrollmentFilter provides filters for listing enrollment requests.
type EnrollmentFilter struct {
	StudentID    string
	SectionID    string
	Status       EnrollmentStatus
	AcademicYear string
	Semester     string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// PendingFilter scopes the FIFO pending queue.
type PendingFilter struct {
	SectionID    string
	AcademicYear string
	Semester     string
	// TeacherID limits results to sections assigned to the teacher.
	TeacherID string
}

// BulkSkip explains why a request in a bulk approval was left pending.
type BulkSkip struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

// BulkApproveResult reports per-request outcomes of a bulk approval.
type BulkApproveResult struct {
	Approved []string   `json:"approved"`
	Skipped  []BulkSkip `json:"skipped"`
}
