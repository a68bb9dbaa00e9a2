package browser_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"places_scraper/internal/adapters/browser"
	"places_scraper/internal/domain"
)

const contactHTML = `<button class="CsEnBe" data-item-id="address" aria-label="Address: 12 Le Loi, District 1"></button>` +
	`<button class="CsEnBe" data-tooltip="Copy phone number" aria-label="Phone: 028 3822 1234"></button>`

// reviewPage renders min(3+2k, total) reviews after k scrolls, plus a repeat
// of the first one, and grows the page until everything is shown.
func reviewPage(total int) (func(int) string, func(int) int64) {
	shown := func(k int) int { return min(3+2*k, total) }
	page := func(k int) string {
		var b strings.Builder
		b.WriteString(contactHTML)
		for i := 0; i < shown(k); i++ {
			b.WriteString(reviewHTML(i))
		}
		b.WriteString(reviewHTML(0))
		return b.String()
	}
	height := func(k int) int64 { return int64(1000 + 100*shown(k)) }
	return page, height
}

func newReviews(s *fakeSession) *browser.ReviewHarvester {
	h := browser.NewReviewHarvester(s)
	h.Pause = 0
	return h
}

func TestReviews_DedupAcrossScrolls(t *testing.T) {
	page, height := reviewPage(7)
	s := &fakeSession{page: page, height: height}
	p := &domain.Place{Name: "Cafe", URL: "https://www.google.com/maps/place/p1"}

	got, err := newReviews(s).Harvest(context.Background(), p, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d reviews want 7", len(got))
	}
	keys := map[string]bool{}
	for i, r := range got {
		if keys[r.DedupKey()] {
			t.Fatalf("duplicate review %+v", r)
		}
		keys[r.DedupKey()] = true
		if r.Author != fmt.Sprintf("Author %d", i) {
			t.Fatalf("review %d author %q", i, r.Author)
		}
		if r.Rating != i%5+1 {
			t.Fatalf("review %d rating %d", i, r.Rating)
		}
	}
	if p.Address != "12 Le Loi, District 1" || p.Phone != "028 3822 1234" {
		t.Fatalf("contact not filled: %+v", p)
	}
}

func TestReviews_RespectsMax(t *testing.T) {
	page, height := reviewPage(50)
	s := &fakeSession{page: page, height: height}
	got, err := newReviews(s).Harvest(context.Background(), &domain.Place{URL: "u"}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d want 4", len(got))
	}
}

func TestReviews_StopsWhenHeightStalls(t *testing.T) {
	page, _ := reviewPage(50)
	s := &fakeSession{page: page, height: func(int) int64 { return 1000 }}
	got, err := newReviews(s).Harvest(context.Background(), &domain.Place{URL: "u"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || s.scrolls != 1 {
		t.Fatalf("got %d reviews after %d scrolls", len(got), s.scrolls)
	}
}

func TestReviews_TabClickFailure(t *testing.T) {
	page, height := reviewPage(5)
	s := &fakeSession{page: page, height: height, clickErr: fmt.Errorf("%w: click timeout", domain.ErrInteraction)}
	p := &domain.Place{Name: "Bar", URL: "u"}
	got, err := newReviews(s).Harvest(context.Background(), p, 10)
	if !errors.Is(err, domain.ErrInteraction) {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d reviews", len(got))
	}
	if p.Address != "" || p.Phone != "" || p.Website != "" {
		t.Fatalf("place changed on click failure: %+v", p)
	}
}

func TestReviews_NoScrollAfterLastAttempt(t *testing.T) {
	page, height := reviewPage(500)
	s := &fakeSession{page: page, height: height}
	h := newReviews(s)
	h.MaxAttempts = 3

	got, err := h.Harvest(context.Background(), &domain.Place{URL: "u"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.scrolls != 2 {
		t.Fatalf("scrolled %d times, want 2", s.scrolls)
	}
	if len(got) != 7 {
		t.Fatalf("got %d reviews want 7", len(got))
	}
}

func TestReviews_NoURL(t *testing.T) {
	s := &fakeSession{}
	_, err := newReviews(s).Harvest(context.Background(), &domain.Place{Name: "x"}, 10)
	if !errors.Is(err, domain.ErrInteraction) || len(s.navigated) != 0 {
		t.Fatalf("err=%v nav=%v", err, s.navigated)
	}
}
