package models

// NotificationKind identifies the enrollment decision being announced.
type NotificationKind string

const (
	NotificationEnrollmentApproved NotificationKind = "enrollment_approved"
	NotificationEnrollmentRejected NotificationKind = "enrollment_rejected"
)

// NotificationEvent describes an enrollment decision for the external
// delivery service. Recipient resolution and transport happen there; this
// service only guarantees the event is emitted once, after the decision
// committed.
type NotificationEvent struct {
	RequestID string           `json:"request_id"`
	StudentID string           `json:"student_id"`
	SectionID string           `json:"section_id"`
	Kind      NotificationKind `json:"kind"`
}
