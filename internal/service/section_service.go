package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/college-enroll-api/internal/models"
	appErrors "github.com/noah-isme/college-enroll-api/pkg/errors"
)

type sectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ListAvailable(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
}

// SectionService exposes registry reads over the catalog's sections. The
// available-sections listing may be served from cache; capacity decisions
// never go through here.
type SectionService struct {
	repo       sectionRepository
	capacity   *CapacityService
	cache      *CacheService
	activeTerm string
	logger     *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, capacity *CapacityService, cache *CacheService, activeTerm string, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, capacity: capacity, cache: cache, activeTerm: activeTerm, logger: logger}
}

const sectionsCacheKeyPrefix = "sections:available:"

// Get returns a section with derived seat counts.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return detail, nil
}

// ListAvailable returns active sections with seats remaining. Results may
// be a short-TTL cache read; the cache is invalidated whenever a decision
// changes a seat count.
func (s *SectionService) ListAvailable(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	key := fmt.Sprintf("%s%s:%s:%s", sectionsCacheKeyPrefix, filter.AcademicYear, filter.Semester, filter.SubjectID)

	var cached []models.SectionDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	sections, err := s.repo.ListAvailable(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	if err := s.cache.Set(ctx, key, sections, 0); err != nil {
		s.logger.Warn("failed to cache section listing", zap.Error(err))
	}
	return sections, nil
}

// Capacity returns the derived seat snapshot for a section.
func (s *SectionService) Capacity(ctx context.Context, id string) (*models.CapacitySnapshot, error) {
	return s.capacity.Snapshot(ctx, id)
}

// AcceptingEnrollment reports whether the section takes new submissions:
// it must be active and, when an active term is configured, belong to it.
func (s *SectionService) AcceptingEnrollment(section *models.Section) bool {
	if section == nil || !section.IsActive {
		return false
	}
	if s.activeTerm != "" && section.Semester != s.activeTerm {
		return false
	}
	return true
}

// InvalidateAvailability flushes cached availability listings after a
// committed decision.
func (s *SectionService) InvalidateAvailability(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, sectionsCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate section cache", zap.Error(err))
	}
}
