package browser

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"places_scraper/internal/adapters/observability"
	"places_scraper/internal/domain"
	"places_scraper/internal/shared"
)

// FeedHarvester scrolls a search result feed and collects listing summaries.
type FeedHarvester struct {
	s           domain.Session
	BaseURL     string
	MaxAttempts int
	Settle      time.Duration
	FeedTimeout time.Duration
}

func NewFeedHarvester(s domain.Session) *FeedHarvester {
	return &FeedHarvester{
		s:           s,
		BaseURL:     SearchBaseURL,
		MaxAttempts: 10,
		Settle:      500 * time.Millisecond,
		FeedTimeout: 10 * time.Second,
	}
}

// SearchURL builds ".../maps/search/<category> in <locality>/@<radius>z".
func SearchURL(base, locality, category string, radius float64) string {
	q := url.PathEscape(category + " in " + locality)
	return base + q + "/@" + strconv.FormatFloat(radius, 'f', -1, 64) + "z"
}

// Harvest returns at most max places in feed order. Listing nodes that cannot
// be parsed are logged and skipped.
func (h *FeedHarvester) Harvest(ctx context.Context, locality string, radius float64, category string, max int) ([]*domain.Place, error) {
	places := make([]*domain.Place, 0)
	if max <= 0 {
		return places, nil
	}
	u := SearchURL(h.BaseURL, locality, category, radius)
	log.Info().Str("category", category).Str("url", u).Msg("searching")

	if err := h.s.Navigate(ctx, u); err != nil {
		return nil, err
	}
	if err := h.s.WaitVisible(ctx, FeedSelector, h.FeedTimeout); err != nil {
		return nil, fmt.Errorf("result feed for %q: %w", category, err)
	}

	// seen counts nodes already consumed, malformed ones included, so that
	// a skipped node never shifts the window onto an already emitted one.
	seen := 0
	_, err := shared.PollUntil(ctx, h.MaxAttempts, h.Settle, func(attempt int) (bool, error) {
		html, err := h.s.HTML(ctx)
		if err != nil {
			return false, err
		}
		nodes, err := ParseListings(html)
		if err != nil {
			return false, err
		}
		for seen < len(nodes) && len(places) < max {
			n := nodes[seen]
			seen++
			if n.Err != nil {
				log.Warn().Err(n.Err).Str("category", category).Int("node", seen-1).Msg("skipping listing")
				continue
			}
			n.Place.Category = category
			places = append(places, n.Place)
		}
		if len(places) >= max {
			return true, nil
		}
		if attempt == h.MaxAttempts-1 {
			return false, nil
		}
		observability.ObserveScroll("feed")
		var ok bool
		return false, h.s.Eval(ctx, scrollFeedScript, &ok)
	})
	if err != nil {
		if ctx.Err() != nil {
			return places, ctx.Err()
		}
		return places, fmt.Errorf("harvest feed for %q: %w", category, err)
	}

	log.Info().Str("category", category).Int("found", len(places)).Msg("feed harvested")
	return places, nil
}
