package domain_test

import (
	"strings"
	"testing"

	"places_scraper/internal/domain"
)

func TestReviewDedupKey(t *testing.T) {
	a := domain.Review{Author: "Lan_2 weeks", Time: "ago", Text: "Good"}
	b := domain.Review{Author: "Lan", Time: "2 weeks_ago", Text: "Good"}
	if a.DedupKey() == b.DedupKey() {
		t.Fatalf("distinct reviews share a key: %q", a.DedupKey())
	}

	long := strings.Repeat("ă", 60)
	c := domain.Review{Author: "Minh", Time: "a day ago", Text: long}
	d := domain.Review{Author: "Minh", Time: "a day ago", Text: long + " edited", Rating: 3}
	if c.DedupKey() != d.DedupKey() {
		t.Fatalf("keys should only use the first 50 characters of the body")
	}
	if !strings.HasSuffix(c.DedupKey(), strings.Repeat("ă", 50)) {
		t.Fatalf("prefix not cut at 50 runes: %q", c.DedupKey())
	}
}
