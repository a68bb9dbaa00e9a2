package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"places_scraper/internal/adapters/observability"
	"places_scraper/internal/domain"
)

// HarvestService runs one batch: categories in order, places in order, one
// review pass at a time, each finished record appended to the output.
type HarvestService struct {
	src        domain.PlaceSource
	out        domain.RecordWriter
	repo       domain.PlaceRepository // optional mirror
	runID      string
	maxReviews int
	dedup      bool
	now        func() time.Time
}

type HarvestOption func(*HarvestService)

// WithMirror upserts every emitted record into repo.
func WithMirror(repo domain.PlaceRepository) HarvestOption {
	return func(s *HarvestService) { s.repo = repo }
}

// WithPlaceDedup drops places already emitted under an earlier category.
func WithPlaceDedup(on bool) HarvestOption {
	return func(s *HarvestService) { s.dedup = on }
}

func NewHarvestService(src domain.PlaceSource, out domain.RecordWriter, runID string, maxReviews int, opts ...HarvestOption) *HarvestService {
	s := &HarvestService{src: src, out: out, runID: runID, maxReviews: maxReviews, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CategoryStats struct {
	Category string
	Listed   int
	Emitted  int
	Elapsed  time.Duration
}

type RunSummary struct {
	Records    int
	Failures   int
	Skipped    int
	Elapsed    time.Duration
	PerRecord  []time.Duration
	Categories []CategoryStats
}

// AvgPerRecord is zero when nothing was emitted.
func (r RunSummary) AvgPerRecord() time.Duration {
	if len(r.PerRecord) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range r.PerRecord {
		total += d
	}
	return total / time.Duration(len(r.PerRecord))
}

// Run harvests every category. A failure to list a category or a cancelled
// context ends the run with an error; failures inside one record only drop or
// trim that record. The summary is valid in both cases.
func (s *HarvestService) Run(ctx context.Context, categories []string) (RunSummary, error) {
	var sum RunSummary
	start := s.now()

	emitted := make(map[string]struct{})
	for _, category := range categories {
		cs := CategoryStats{Category: category}
		catStart := s.now()

		places, err := s.src.ListPlaces(ctx, category)
		if err != nil {
			sum.Elapsed = s.now().Sub(start)
			return sum, fmt.Errorf("list %q: %w", category, err)
		}
		cs.Listed = len(places)

		for _, p := range places {
			if s.dedup {
				k := p.Key()
				if _, dup := emitted[k]; dup {
					log.Debug().Str("place", p.Name).Str("category", category).Msg("already emitted, skipping")
					sum.Skipped++
					continue
				}
				emitted[k] = struct{}{}
			}

			recStart := s.now()
			ok, err := s.harvestOne(ctx, p)
			if err != nil {
				sum.Elapsed = s.now().Sub(start)
				return sum, err
			}
			if !ok {
				sum.Failures++
				continue
			}
			d := s.now().Sub(recStart)
			sum.PerRecord = append(sum.PerRecord, d)
			sum.Records++
			cs.Emitted++
			observability.ObserveRecord(s.src.Name(), category, p.CollectedReviews, d)
			log.Info().Str("place", p.Name).Int("reviews", p.CollectedReviews).Dur("took", d).Msg("place processed")
		}

		cs.Elapsed = s.now().Sub(catStart)
		sum.Categories = append(sum.Categories, cs)
		log.Info().Str("category", category).Int("listed", cs.Listed).Int("emitted", cs.Emitted).
			Dur("elapsed", cs.Elapsed).Msg("category completed")
	}
	sum.Elapsed = s.now().Sub(start)
	return sum, nil
}

// harvestOne enriches, finalizes and emits p. It reports false when the
// record was dropped; the error is non-nil only when the run must stop.
func (s *HarvestService) harvestOne(ctx context.Context, p *domain.Place) (bool, error) {
	reviews, err := s.src.EnrichReviews(ctx, p, s.maxReviews)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, domain.ErrInteraction):
		// keep whatever was populated before the failure
		observability.ObserveFailure("interaction")
		log.Warn().Err(err).Str("place", p.Name).Msg("reviews unavailable")
	default:
		observability.ObserveFailure("enrich")
		log.Warn().Err(err).Str("place", p.Name).Str("url", p.URL).Msg("skipping place")
		return false, nil
	}

	p.SetReviews(reviews)
	if err := s.out.Append(p); err != nil {
		observability.ObserveFailure("write")
		log.Error().Err(err).Str("place", p.Name).Msg("write record failed")
		return false, nil
	}

	if s.repo != nil {
		s.mirror(ctx, p)
	}
	return true, nil
}

func (s *HarvestService) mirror(ctx context.Context, p *domain.Place) {
	id, err := s.repo.UpsertPlace(ctx, s.runID, *p)
	if err == nil && len(p.Reviews) > 0 {
		err = s.repo.UpsertReviews(ctx, id, p.Reviews)
	}
	if err != nil {
		observability.ObserveFailure("mirror")
		log.Warn().Err(err).Str("place", p.Name).Msg("mirror to database failed")
	}
}

// LogSummary writes the end-of-run timing report.
func LogSummary(runID string, sum RunSummary) {
	ev := log.Info().Str("run_id", runID).
		Int("records", sum.Records).
		Int("failures", sum.Failures).
		Int("skipped", sum.Skipped).
		Dur("elapsed", sum.Elapsed).
		Dur("avg_per_record", sum.AvgPerRecord())
	for _, c := range sum.Categories {
		ev = ev.Dur("elapsed_"+c.Category, c.Elapsed)
	}
	ev.Msg("run summary")
}
