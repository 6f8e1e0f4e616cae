package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sgacad/sgacad-api/internal/models"
)

// CatalogService layers the redis cache over the read-mostly catalog
// listings. Admission control never reads seat counts through this path.
type CatalogService struct {
	sections    *SectionService
	disciplines *DisciplineService
	cache       *CacheService
	logger      *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(sections *SectionService, disciplines *DisciplineService, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{sections: sections, disciplines: disciplines, cache: cache, logger: logger}
}

// Sections lists sections, serving unfiltered listings from cache when
// possible. Filtered listings always hit the database.
func (s *CatalogService) Sections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	key := sectionCacheKey(filter)
	cacheable := key != ""

	if cacheable {
		var cached []models.SectionDetail
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}

	listing, err := s.sections.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, listing, 0)
	}
	return listing, nil
}

// Disciplines lists the discipline catalog through the cache.
func (s *CatalogService) Disciplines(ctx context.Context) ([]models.DisciplineDetail, error) {
	var cached []models.DisciplineDetail
	if hit, _ := s.cache.Get(ctx, cacheKeyDisciplines, &cached); hit {
		return cached, nil
	}

	listing, err := s.disciplines.List(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, cacheKeyDisciplines, listing, 0)
	return listing, nil
}

// sectionCacheKey returns the cache key for a listing, or "" when the filter
// combination is not worth caching.
func sectionCacheKey(filter models.SectionFilter) string {
	if filter.ProfessorID != "" || filter.Day != nil || filter.Shift != nil {
		return ""
	}
	return fmt.Sprintf("%s:d=%s:avail=%t", cacheKeySections, filter.DisciplineID, filter.OnlyAvailable)
}
