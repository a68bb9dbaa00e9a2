package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"places_scraper/internal/domain"
	"places_scraper/internal/shared"
)

// DefaultCenter is used by API searches when no coordinate is configured and
// the locality cannot be geocoded.
var DefaultCenter = domain.LatLng{Lat: 10.738727, Lng: 106.711703}

type FeedHarvester interface {
	Harvest(ctx context.Context, locality string, radius float64, category string, max int) ([]*domain.Place, error)
}

type ReviewHarvester interface {
	Harvest(ctx context.Context, p *domain.Place, max int) ([]domain.Review, error)
}

type Geocoder interface {
	Lookup(ctx context.Context, locality string) (domain.LatLng, error)
}

// SourceConfig is the part of the run configuration a strategy needs.
type SourceConfig struct {
	Locality  string
	RadiusKm  float64
	Center    domain.LatLng
	Polygon   []domain.LatLng
	MaxPlaces int
	Language  string
}

// SourceDeps carries the collaborators a strategy may use. Closer, when set,
// is released by the source's Close (the browser session).
type SourceDeps struct {
	Feed    FeedHarvester
	Reviews ReviewHarvester
	API     domain.PlacesAPI
	Closer  io.Closer
}

// NewSource selects the collection strategy once per run.
func NewSource(strategy string, cfg SourceConfig, deps SourceDeps) (domain.PlaceSource, error) {
	switch strategy {
	case shared.StrategyBrowser:
		if deps.Feed == nil || deps.Reviews == nil {
			return nil, errors.New("browser strategy needs a rendering session")
		}
		return &browserSource{cfg: cfg, feed: deps.Feed, reviews: deps.Reviews, closer: deps.Closer}, nil
	case shared.StrategyAPI:
		if deps.API == nil {
			return nil, errors.New("api strategy needs a places client")
		}
		return &apiSource{cfg: cfg, api: deps.API, closer: deps.Closer}, nil
	case shared.StrategyHybrid:
		if deps.API == nil || deps.Reviews == nil {
			return nil, errors.New("hybrid strategy needs a places client and a rendering session")
		}
		return &hybridSource{apiSource: apiSource{cfg: cfg, api: deps.API}, reviews: deps.Reviews, closer: deps.Closer}, nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", shared.ErrConfig, strategy)
}

// ResolveCenter picks the API search center: explicit "lat,lng" first, then
// the geocoded locality, then DefaultCenter.
func ResolveCenter(ctx context.Context, g Geocoder, location, locality string) domain.LatLng {
	if location != "" {
		if lat, lng, err := shared.ParseLatLng(location); err == nil {
			return domain.LatLng{Lat: lat, Lng: lng}
		}
	}
	if g != nil && strings.TrimSpace(locality) != "" {
		c, err := g.Lookup(ctx, locality)
		if err == nil {
			return c
		}
		log.Warn().Err(err).Str("locality", locality).Msg("geocoding failed, using default center")
	}
	return DefaultCenter
}

func closeQuietly(c io.Closer) error {
	if c == nil {
		return nil
	}
	return c.Close()
}

/********** browser **********/

type browserSource struct {
	cfg     SourceConfig
	feed    FeedHarvester
	reviews ReviewHarvester
	closer  io.Closer
}

func (s *browserSource) Name() string { return shared.StrategyBrowser }

func (s *browserSource) ListPlaces(ctx context.Context, category string) ([]*domain.Place, error) {
	return s.feed.Harvest(ctx, s.cfg.Locality, s.cfg.RadiusKm, category, s.cfg.MaxPlaces)
}

func (s *browserSource) EnrichReviews(ctx context.Context, p *domain.Place, max int) ([]domain.Review, error) {
	return s.reviews.Harvest(ctx, p, max)
}

func (s *browserSource) Close() error { return closeQuietly(s.closer) }

/********** api **********/

type apiSource struct {
	cfg    SourceConfig
	api    domain.PlacesAPI
	closer io.Closer
}

func (s *apiSource) Name() string { return shared.StrategyAPI }

func (s *apiSource) query(category string) domain.SearchQuery {
	text := category
	if s.cfg.Locality != "" {
		text = category + ", " + s.cfg.Locality
	}
	q := domain.SearchQuery{
		Text:       text,
		Circle:     &domain.Circle{Center: s.cfg.Center, RadiusM: s.cfg.RadiusKm * 1000},
		MaxResults: s.cfg.MaxPlaces,
		Language:   s.cfg.Language,
	}
	if len(s.cfg.Polygon) >= 3 {
		q.Polygon = s.cfg.Polygon
	}
	return q
}

func (s *apiSource) ListPlaces(ctx context.Context, category string) ([]*domain.Place, error) {
	raw, _ := s.api.Search(ctx, s.query(category))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*domain.Place, 0, len(raw))
	for _, m := range raw {
		out = append(out, mapPlace(m, category))
	}
	log.Info().Str("category", category).Int("found", len(out)).Msg("search finished")
	return out, nil
}

// EnrichReviews skips the lookup for places that report no reviews.
func (s *apiSource) EnrichReviews(ctx context.Context, p *domain.Place, max int) ([]domain.Review, error) {
	if p.TotalReviews == 0 || p.ID == "" {
		return []domain.Review{}, nil
	}
	rs := mapReviews(s.api.Reviews(ctx, p.ID, max))
	return rs, ctx.Err()
}

func (s *apiSource) Close() error { return closeQuietly(s.closer) }

/********** hybrid **********/

// hybridSource discovers places through the API and reads reviews from the
// rendered detail page.
type hybridSource struct {
	apiSource
	reviews ReviewHarvester
	closer  io.Closer
}

func (s *hybridSource) Name() string { return shared.StrategyHybrid }

func (s *hybridSource) ListPlaces(ctx context.Context, category string) ([]*domain.Place, error) {
	ps, err := s.apiSource.ListPlaces(ctx, category)
	for _, p := range ps {
		if p.ID != "" {
			p.URL = domain.MapsURLForID(p.ID)
		}
	}
	return ps, err
}

func (s *hybridSource) EnrichReviews(ctx context.Context, p *domain.Place, max int) ([]domain.Review, error) {
	return s.reviews.Harvest(ctx, p, max)
}

func (s *hybridSource) Close() error { return closeQuietly(s.closer) }
