package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-enroll-api/internal/models"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
)

func TestCapacityServiceSnapshot(t *testing.T) {
	repo := newMockEnrollmentRepo(
		approved("a1", "s1", "sec1"),
		approved("a2", "s2", "sec1"),
		pending("r1", "s3", "sec1", time.Now()),
	)
	sections := &mockSectionRepo{sections: map[string]models.Section{"sec1": section("sec1", 5, true)}}
	svc := NewCapacityService(sections, repo)

	snapshot, err := svc.Snapshot(context.Background(), "sec1")
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.Capacity)
	// Pending requests never count toward enrolled seats.
	assert.Equal(t, 2, snapshot.EnrolledCount)
	assert.Equal(t, 3, snapshot.AvailableSeats)
}

func TestCapacityServiceOverCapacityFloorsAtZero(t *testing.T) {
	// Capacity may have been lowered below the approved count by the
	// catalog; available seats must not go negative.
	repo := newMockEnrollmentRepo(
		approved("a1", "s1", "sec1"),
		approved("a2", "s2", "sec1"),
		approved("a3", "s3", "sec1"),
	)
	sections := &mockSectionRepo{sections: map[string]models.Section{"sec1": section("sec1", 2, true)}}
	svc := NewCapacityService(sections, repo)

	seats, err := svc.AvailableSeats(context.Background(), "sec1")
	require.NoError(t, err)
	assert.Equal(t, 0, seats)
}

func TestCapacityServiceCanApprove(t *testing.T) {
	repo := newMockEnrollmentRepo(approved("a1", "s1", "sec1"))
	sections := &mockSectionRepo{sections: map[string]models.Section{
		"sec1": section("sec1", 1, true),
		"sec2": section("sec2", 1, true),
	}}
	svc := NewCapacityService(sections, repo)

	ok, err := svc.CanApprove(context.Background(), "sec1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanApprove(context.Background(), "sec2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCapacityServiceUnknownSection(t *testing.T) {
	svc := NewCapacityService(&mockSectionRepo{}, newMockEnrollmentRepo())

	_, err := svc.Snapshot(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
