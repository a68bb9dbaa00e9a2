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

func newFeed(s *fakeSession) *browser.FeedHarvester {
	h := browser.NewFeedHarvester(s)
	h.Settle = 0
	return h
}

func TestFeed_CollectsNewNodesAcrossScrolls(t *testing.T) {
	s := &fakeSession{page: feedOf(3, 5, 7)}
	got, err := newFeed(s).Harvest(context.Background(), "District 1", 2, "cafe", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d places, want 7", len(got))
	}
	seen := map[string]bool{}
	for i, p := range got {
		if want := fmt.Sprintf("Place %d", i); p.Name != want {
			t.Fatalf("place %d = %q want %q", i, p.Name, want)
		}
		if seen[p.URL] {
			t.Fatalf("duplicate %s", p.URL)
		}
		seen[p.URL] = true
		if p.Category != "cafe" || p.TotalReviews != 1234 || p.Rating != 4.5 {
			t.Fatalf("bad fields: %+v", p)
		}
	}
	if len(s.navigated) != 1 || !strings.HasSuffix(s.navigated[0], "cafe%20in%20District%201/@2z") {
		t.Fatalf("navigated %v", s.navigated)
	}
}

func TestFeed_StopsAtMax(t *testing.T) {
	s := &fakeSession{page: feedOf(3, 5, 7)}
	got, err := newFeed(s).Harvest(context.Background(), "Hue", 5, "bar", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d want 4", len(got))
	}
	if s.scrolls != 1 {
		t.Fatalf("scrolls=%d want 1", s.scrolls)
	}
}

func TestFeed_ExactlyNWhenFeedKeepsGrowing(t *testing.T) {
	s := &fakeSession{page: func(k int) string { return feedOf((k + 1) * 5)(0) }}
	got, err := newFeed(s).Harvest(context.Background(), "Hue", 5, "bar", 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 12 {
		t.Fatalf("got %d want 12", len(got))
	}
}

func TestFeed_AttemptCeiling(t *testing.T) {
	s := &fakeSession{page: feedOf(2)}
	h := newFeed(s)
	got, err := h.Harvest(context.Background(), "Hue", 5, "bar", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d want 2", len(got))
	}
	if s.scrolls != h.MaxAttempts-1 {
		t.Fatalf("scrolls=%d want %d", s.scrolls, h.MaxAttempts-1)
	}
}

func TestFeed_SkipsMalformedNode(t *testing.T) {
	page := func(int) string {
		return `<div role="feed">` + listingHTML(0) + `<div class="Nv2PK"><span>ad</span></div>` + listingHTML(2) + `</div>`
	}
	got, err := newFeed(&fakeSession{page: page}).Harvest(context.Background(), "Hue", 5, "bar", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Place 0" || got[1].Name != "Place 2" {
		t.Fatalf("got %+v", got)
	}
}

func TestFeed_MissingFeed(t *testing.T) {
	s := &fakeSession{page: feedOf(0), waitErr: fmt.Errorf("%w: timeout", domain.ErrInteraction)}
	_, err := newFeed(s).Harvest(context.Background(), "Hue", 5, "bar", 10)
	if !errors.Is(err, domain.ErrInteraction) {
		t.Fatalf("err=%v", err)
	}
}

func TestFeed_ZeroMax(t *testing.T) {
	s := &fakeSession{page: feedOf(3)}
	got, err := newFeed(s).Harvest(context.Background(), "Hue", 5, "bar", 0)
	if err != nil || len(got) != 0 || len(s.navigated) != 0 {
		t.Fatalf("got=%v err=%v nav=%v", got, err, s.navigated)
	}
}
