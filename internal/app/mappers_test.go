package app

import "testing"

func TestMapPlace_SnakeCaseAndResourceName(t *testing.T) {
	p := mapPlace(map[string]any{
		"name":               "places/abc",
		"display_name":       map[string]any{"text": "Chợ Bến Thành"},
		"formatted_address":  "Lê Lợi, Bến Thành",
		"user_ratings_total": "1520",
		"rating":             "4,3",
	}, "market")
	if p.ID != "abc" || p.Name != "Chợ Bến Thành" || p.Address != "Lê Lợi, Bến Thành" {
		t.Fatalf("mapped %+v", p)
	}
	if p.TotalReviews != 1520 || p.Rating != 4.3 {
		t.Fatalf("numbers %+v", p)
	}
	if p.URL != "https://www.google.com/maps/place/?q=place_id:abc" {
		t.Fatalf("url %q", p.URL)
	}
	if p.Reviews == nil {
		t.Fatal("reviews must be non-nil")
	}
}

func TestMapReviews_Fallbacks(t *testing.T) {
	rs := mapReviews([]map[string]any{
		{
			"author_attribution":                map[string]any{"display_name": "Minh"},
			"original_text":                     map[string]any{"text": "Ngon"},
			"rating":                            4.0,
			"relative_publish_time_description": "2 weeks ago",
		},
		{"rating": 11.0},
		{},
	})
	if len(rs) != 3 {
		t.Fatalf("len=%d", len(rs))
	}
	if rs[0].Author != "Minh" || rs[0].Text != "Ngon" || rs[0].Rating != 4 || rs[0].Time != "2 weeks ago" {
		t.Fatalf("review 0 %+v", rs[0])
	}
	if rs[1].Rating != 0 || rs[2].Rating != 0 {
		t.Fatalf("out-of-range ratings: %+v", rs[1:])
	}
}
