package domain

import "strings"

// Place is one collected listing. Every field is always present in the
// serialized form; missing values stay at their zero value.
type Place struct {
	ID               string   `json:"-"` // source id (API place id); empty for browser listings
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	Phone            string   `json:"phone"`
	Website          string   `json:"website"`
	Rating           float64  `json:"rating"`
	TotalReviews     int      `json:"total_reviews"`     // as reported by the source
	CollectedReviews int      `json:"collected_reviews"` // always len(Reviews)
	URL              string   `json:"url"`
	Category         string   `json:"category"`
	Reviews          []Review `json:"reviews"`
}

// SetReviews replaces the review list and keeps CollectedReviews in step.
// A nil slice is normalized to an empty one so the output carries [].
func (p *Place) SetReviews(rs []Review) {
	if rs == nil {
		rs = []Review{}
	}
	p.Reviews = rs
	p.CollectedReviews = len(rs)
}

// Finalize prepares the place for output.
func (p *Place) Finalize() {
	p.SetReviews(p.Reviews)
}

// MapsURLForID returns the public detail URL for an API place id.
func MapsURLForID(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.google.com/maps/place/?q=place_id:" + id
}

// Key identifies a place across categories: URL when known, else the name.
func (p *Place) Key() string {
	if u := strings.TrimSpace(p.URL); u != "" {
		return u
	}
	return strings.ToLower(strings.TrimSpace(p.Name))
}
