package app

import (
	"math"
	"strconv"
	"strings"

	"places_scraper/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Search payloads arrive camelCase from the REST surface and snake_case from
// older exports; both are accepted.
var placeAliases = map[string][]string{
	"id":      {"id", "place_id", "placeId"},
	"name":    {"displayName.text", "display_name.text", "displayName", "title"},
	"address": {"formattedAddress", "formatted_address", "shortFormattedAddress", "vicinity"},
	"phone":   {"nationalPhoneNumber", "national_phone_number", "internationalPhoneNumber", "formatted_phone_number"},
	"website": {"websiteUri", "website_uri", "website"},
	"url":     {"googleMapsUri", "google_maps_uri", "url"},
	"rating":  {"rating"},
	"total":   {"userRatingCount", "user_rating_count", "user_ratings_total"},
}

var reviewAliases = map[string][]string{
	"author": {"authorAttribution.displayName", "author_attribution.display_name", "author_name", "author"},
	"text":   {"text.text", "originalText.text", "original_text.text", "text"},
	"rating": {"rating"},
	"time":   {"relativePublishTimeDescription", "relative_publish_time_description", "publishTime", "publish_time", "time"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// floatFlexible: number from several paths (float64/int/string like "4,5").
func floatFlexible(m map[string]any, paths ...string) float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

/********** place mapper **********/

func placeID(p map[string]any) string {
	if id := firstAlias(p, placeAliases, "id"); id != "" {
		return id
	}
	// resource name form: "places/<id>"
	if name := lookupStr(p, "name"); strings.HasPrefix(name, "places/") {
		return strings.TrimPrefix(name, "places/")
	}
	return ""
}

func mapPlace(p map[string]any, category string) *domain.Place {
	id := placeID(p)
	url := firstAlias(p, placeAliases, "url")
	if url == "" {
		url = domain.MapsURLForID(id)
	}
	return &domain.Place{
		ID:           id,
		Name:         firstAlias(p, placeAliases, "name"),
		Address:      firstAlias(p, placeAliases, "address"),
		Phone:        firstAlias(p, placeAliases, "phone"),
		Website:      firstAlias(p, placeAliases, "website"),
		Rating:       floatFlexible(p, placeAliases["rating"]...),
		TotalReviews: int(floatFlexible(p, placeAliases["total"]...)),
		URL:          url,
		Category:     category,
		Reviews:      []domain.Review{},
	}
}

/********** reviews mapper **********/

func mapReviews(in []map[string]any) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		rating := int(math.Round(floatFlexible(r, reviewAliases["rating"]...)))
		if rating < 1 || rating > 5 {
			rating = 0
		}
		out = append(out, domain.Review{
			Author: firstAlias(r, reviewAliases, "author"),
			Text:   firstAlias(r, reviewAliases, "text"),
			Rating: rating,
			Time:   firstAlias(r, reviewAliases, "time"),
		})
	}
	return out
}
