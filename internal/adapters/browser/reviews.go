package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"places_scraper/internal/adapters/observability"
	"places_scraper/internal/domain"
	"places_scraper/internal/shared"
)

// ReviewHarvester opens a place's detail view and pages through its reviews.
type ReviewHarvester struct {
	s           domain.Session
	MaxAttempts int
	Pause       time.Duration
	TabTimeout  time.Duration
}

func NewReviewHarvester(s domain.Session) *ReviewHarvester {
	return &ReviewHarvester{
		s:           s,
		MaxAttempts: 20,
		Pause:       time.Second,
		TabTimeout:  10 * time.Second,
	}
}

// Harvest collects up to max unique reviews (max <= 0 means no cap) and fills
// p's address, phone and website from the reviews view. If the reviews tab
// cannot be opened the error wraps domain.ErrInteraction and p is left as is.
func (h *ReviewHarvester) Harvest(ctx context.Context, p *domain.Place, max int) ([]domain.Review, error) {
	reviews := make([]domain.Review, 0)
	if p.URL == "" {
		return reviews, fmt.Errorf("%w: %q has no detail url", domain.ErrInteraction, p.Name)
	}
	if err := h.s.Navigate(ctx, p.URL); err != nil {
		return reviews, err
	}

	if err := h.s.Click(ctx, ReviewsTabSelector, h.TabTimeout); err != nil {
		return reviews, err
	}
	// reviews render lazily; the stagnation check below copes with none
	_ = h.s.WaitVisible(ctx, ReviewNodeSelector, h.TabTimeout)

	if html, err := h.s.HTML(ctx); err == nil {
		h.fillContact(p, html)
	} else if ctx.Err() != nil {
		return reviews, ctx.Err()
	}

	var lastHeight int64
	if err := h.s.Eval(ctx, pageHeightScript, &lastHeight); err != nil {
		return reviews, err
	}

	keys := make(map[string]struct{})
	_, err := shared.PollUntil(ctx, h.MaxAttempts, h.Pause, func(attempt int) (bool, error) {
		if attempt > 0 {
			var height int64
			if err := h.s.Eval(ctx, pageHeightScript, &height); err != nil {
				return false, err
			}
			if height == lastHeight {
				return true, nil
			}
			lastHeight = height
		}

		html, err := h.s.HTML(ctx)
		if err != nil {
			return false, err
		}
		batch, err := ParseReviews(html)
		if err != nil {
			return false, err
		}
		for _, r := range batch {
			if max > 0 && len(reviews) >= max {
				break
			}
			k := r.DedupKey()
			if _, dup := keys[k]; dup {
				continue
			}
			keys[k] = struct{}{}
			reviews = append(reviews, r)
		}
		if max > 0 && len(reviews) >= max {
			return true, nil
		}
		if attempt == h.MaxAttempts-1 {
			return false, nil
		}
		observability.ObserveScroll("reviews")
		return false, h.s.Eval(ctx, scrollWindowScript, nil)
	})
	if err != nil {
		if ctx.Err() != nil {
			return reviews, ctx.Err()
		}
		// keep what was collected; the record is still worth emitting
		log.Debug().Err(err).Str("place", p.Name).Msg("review scroll ended early")
	}

	log.Debug().Str("place", p.Name).Int("reviews", len(reviews)).Msg("reviews harvested")
	return reviews, nil
}

func (h *ReviewHarvester) fillContact(p *domain.Place, html string) {
	c, err := ParseContact(html)
	if err != nil {
		log.Debug().Err(err).Str("place", p.Name).Msg("contact parse failed")
		return
	}
	if p.Address == "" {
		p.Address = c.Address
	}
	if p.Phone == "" {
		p.Phone = c.Phone
	}
	if p.Website == "" {
		p.Website = c.Website
	}
}
