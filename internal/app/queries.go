package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"places_scraper/internal/domain"
)

// QueryService serves mirrored places, read-through cached.
type QueryService struct {
	repo     domain.PlaceRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.PlaceRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetPlace(ctx context.Context, id int64) (domain.PlaceView, error) {
	key := fmt.Sprintf("place:%d", id)
	var pv domain.PlaceView
	if s.get(ctx, key, &pv) {
		return pv, nil
	}
	p, err := s.repo.GetPlace(ctx, id)
	if err != nil {
		return domain.PlaceView{}, err
	}
	s.set(ctx, key, p)
	return p, nil
}

func (s *QueryService) ListPlaces(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error) {
	key := fmt.Sprintf("places:%s:%d", strings.ToLower(q.Category), q.Limit)
	var out domain.PlacesPage
	if s.get(ctx, key, &out) {
		return out, nil
	}
	pg, err := s.repo.ListPlaces(ctx, q)
	if err != nil {
		return domain.PlacesPage{}, err
	}
	cp := domain.PlacesPage{Items: append([]domain.PlaceView(nil), pg.Items...)}
	s.set(ctx, key, cp)
	return cp, nil
}

func (s *QueryService) ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	key := fmt.Sprintf("reviews:%d:%d", id, pg.Limit)
	var out domain.ReviewsPage
	if s.get(ctx, key, &out) {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, id, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	cp := domain.ReviewsPage{Items: append([]domain.Review(nil), rs.Items...)}
	s.set(ctx, key, cp)
	return cp, nil
}

func (s *QueryService) get(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, _ := s.cache.Get(ctx, key, dst)
	return ok
}

func (s *QueryService) set(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	// size guard
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
}
