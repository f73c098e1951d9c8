package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-enroll-api/internal/models"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
)

type fakeCacheRepo struct {
	entries map[string][]byte
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type countingSectionRepo struct {
	mockSectionRepo
	listCalls int
}

func (c *countingSectionRepo) ListAvailable(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	c.listCalls++
	return c.mockSectionRepo.ListAvailable(ctx, filter)
}

func newSectionFixture(sections map[string]models.Section, cacheRepo CacheRepository) (*SectionService, *countingSectionRepo) {
	repo := &countingSectionRepo{mockSectionRepo: mockSectionRepo{sections: sections}}
	capacity := NewCapacityService(repo, newMockEnrollmentRepo())
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	}
	return NewSectionService(repo, capacity, cache, "", nil), repo
}

func TestSectionServiceGet(t *testing.T) {
	svc, _ := newSectionFixture(map[string]models.Section{"sec1": section("sec1", 3, true)}, nil)

	detail, err := svc.Get(context.Background(), "sec1")
	require.NoError(t, err)
	assert.Equal(t, "sec1", detail.ID)

	_, err = svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSectionServiceListAvailableCaches(t *testing.T) {
	svc, repo := newSectionFixture(map[string]models.Section{"sec1": section("sec1", 3, true)}, newFakeCacheRepo())

	filter := models.SectionFilter{AcademicYear: "2026/2027", Semester: "1"}
	first, err := svc.ListAvailable(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listCalls)

	// Second read is served from cache.
	second, err := svc.ListAvailable(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)
}

func TestSectionServiceInvalidateAvailability(t *testing.T) {
	cacheRepo := newFakeCacheRepo()
	svc, repo := newSectionFixture(map[string]models.Section{"sec1": section("sec1", 3, true)}, cacheRepo)

	filter := models.SectionFilter{AcademicYear: "2026/2027", Semester: "1"}
	_, err := svc.ListAvailable(context.Background(), filter)
	require.NoError(t, err)

	svc.InvalidateAvailability(context.Background())

	_, err = svc.ListAvailable(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestSectionServiceAcceptingEnrollment(t *testing.T) {
	svc, _ := newSectionFixture(nil, nil)

	active := section("sec1", 3, true)
	inactive := section("sec2", 3, false)
	assert.True(t, svc.AcceptingEnrollment(&active))
	assert.False(t, svc.AcceptingEnrollment(&inactive))
	assert.False(t, svc.AcceptingEnrollment(nil))
}

func TestSectionServiceAcceptingEnrollmentTermGate(t *testing.T) {
	repo := &mockSectionRepo{}
	capacity := NewCapacityService(repo, newMockEnrollmentRepo())
	svc := NewSectionService(repo, capacity, nil, "2", nil)

	inTerm := section("sec1", 3, true)
	inTerm.Semester = "2"
	outOfTerm := section("sec2", 3, true)
	outOfTerm.Semester = "1"
	assert.True(t, svc.AcceptingEnrollment(&inTerm))
	assert.False(t, svc.AcceptingEnrollment(&outOfTerm))
}

func TestSectionServiceCapacity(t *testing.T) {
	repo := &mockSectionRepo{sections: map[string]models.Section{"sec1": section("sec1", 2, true)}}
	enrollments := newMockEnrollmentRepo(approved("a1", "s1", "sec1"))
	capacity := NewCapacityService(repo, enrollments)
	svc := NewSectionService(repo, capacity, nil, "", nil)

	snapshot, err := svc.Capacity(context.Background(), "sec1")
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.AvailableSeats)
}
