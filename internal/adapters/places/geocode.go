package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"places_scraper/internal/adapters/observability"
	"places_scraper/internal/domain"
)

// Geocoder resolves a locality name to coordinates through a Nominatim
// compatible endpoint, paced at one request per second.
type Geocoder struct {
	base string
	ua   string
	hc   *http.Client
	rl   *rate.Limiter
}

func NewGeocoder(base, userAgent string) *Geocoder {
	return &Geocoder{
		base: strings.TrimRight(base, "?&"),
		ua:   userAgent,
		hc:   &http.Client{Timeout: 15 * time.Second},
		rl:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (g *Geocoder) Lookup(ctx context.Context, locality string) (domain.LatLng, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return domain.LatLng{}, err
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", locality)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"?"+params.Encode(), nil)
	if err != nil {
		return domain.LatLng{}, err
	}
	req.Header.Set("User-Agent", g.ua)
	req.Header.Set("Accept-Language", "en")

	start := time.Now()
	resp, err := g.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("geocoder", "search", 0, time.Since(start))
		return domain.LatLng{}, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("geocoder", "search", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return domain.LatLng{}, fmt.Errorf("geocoder responded with status %d", resp.StatusCode)
	}
	var payload []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.LatLng{}, err
	}
	if len(payload) == 0 {
		return domain.LatLng{}, fmt.Errorf("%w: no geocoding result for %q", domain.ErrNotFound, locality)
	}
	lat, err := strconv.ParseFloat(payload[0].Lat, 64)
	if err != nil {
		return domain.LatLng{}, err
	}
	lng, err := strconv.ParseFloat(payload[0].Lon, 64)
	if err != nil {
		return domain.LatLng{}, err
	}
	return domain.LatLng{Lat: lat, Lng: lng}, nil
}
