package service

import (
	"context"
	"database/sql"

	"github.com/noah-isme/college-enroll-api/internal/models"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
)

type capacitySectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type approvedCounter interface {
	CountApproved(ctx context.Context, sectionID string) (int, error)
}

// CapacityService answers "how many seats remain" and "can this section
// take one more approval" as of the moment of the call. It performs no
// mutation and holds no state: capacity changes between a listing and a
// decision, so callers re-evaluate it inside their critical section.
type CapacityService struct {
	sections capacitySectionReader
	ledger   approvedCounter
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(sections capacitySectionReader, ledger approvedCounter) *CapacityService {
	return &CapacityService{sections: sections, ledger: ledger}
}

// Snapshot recomputes the derived seat state for a section.
func (s *CapacityService) Snapshot(ctx context.Context, sectionID string) (*models.CapacitySnapshot, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	enrolled, err := s.ledger.CountApproved(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count approvals")
	}
	available := section.Capacity - enrolled
	if available < 0 {
		available = 0
	}
	return &models.CapacitySnapshot{
		SectionID:      sectionID,
		Capacity:       section.Capacity,
		EnrolledCount:  enrolled,
		AvailableSeats: available,
	}, nil
}

// AvailableSeats returns the remaining seat count, floored at zero.
func (s *CapacityService) AvailableSeats(ctx context.Context, sectionID string) (int, error) {
	snapshot, err := s.Snapshot(ctx, sectionID)
	if err != nil {
		return 0, err
	}
	return snapshot.AvailableSeats, nil
}

// CanApprove reports whether the section can take one more approval.
func (s *CapacityService) CanApprove(ctx context.Context, sectionID string) (bool, error) {
	seats, err := s.AvailableSeats(ctx, sectionID)
	if err != nil {
		return false, err
	}
	return seats > 0, nil
}
