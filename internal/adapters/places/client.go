// internal/adapters/places/client.go
package places

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"places_scraper/internal/adapters/observability"
	"places_scraper/internal/domain"
	"places_scraper/internal/shared"
)

const (
	// MaxPageSize is the largest page the search endpoint serves.
	MaxPageSize = 20

	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.nationalPhoneNumber," +
		"places.websiteUri,places.rating,places.userRatingCount,places.googleMapsUri,places.location," +
		"places.types,places.primaryType,nextPageToken"
	reviewsFieldMask = "reviews"
)

var (
	ErrNotFound     = errors.New("places: not found")
	ErrUnauthorized = errors.New("places: unauthorized")
	ErrForbidden    = errors.New("places: forbidden")
)

type Client struct {
	base      string
	hc        *http.Client
	key       string
	rl        *rate.Limiter
	retries   int
	pageDelay time.Duration
	language  string

	cache    domain.Cache
	cacheTTL int
}

var _ domain.PlacesAPI = (*Client)(nil)

type Option func(*Client)

// WithRetries enables up to n retries on 429/5xx and network errors.
func WithRetries(n int) Option { return func(c *Client) { c.retries = max(n, 0) } }

// WithPageDelay sets the pause before every continuation request.
func WithPageDelay(d time.Duration) Option { return func(c *Client) { c.pageDelay = d } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithLanguage sets the language used for review lookups.
func WithLanguage(lang string) Option { return func(c *Client) { c.language = lang } }

// WithCache stores every fetched page under a key derived from the request.
func WithCache(cache domain.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = int(ttl.Seconds())
	}
}

func New(base, key string, rps int, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrUnauthorized)
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		base:      strings.TrimRight(base, "/"),
		hc:        &http.Client{Timeout: 20 * time.Second},
		key:       key,
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
		pageDelay: time.Second,
		language:  "en",
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ---- Public API ----

type searchPage struct {
	Places        []map[string]any `json:"places"`
	NextPageToken string           `json:"nextPageToken"`
}

// Search follows continuation tokens until q.MaxResults listings are held or
// the service stops returning a token. The returned token is non-empty only
// when more results exist beyond the cap. Any failure ends pagination: what
// was accumulated so far is returned with no token.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]map[string]any, string) {
	out := make([]map[string]any, 0)
	if q.MaxResults <= 0 {
		return out, ""
	}
	token := ""
	for page := 0; len(out) < q.MaxResults; page++ {
		if page > 0 && !shared.SleepCtx(ctx, c.pageDelay) {
			return out, ""
		}
		body := searchBody(q, min(MaxPageSize, q.MaxResults-len(out)), token)

		var sp searchPage
		if err := c.cached(ctx, "search", body, token, &sp, func() error {
			return c.do(ctx, http.MethodPost, c.base+"/places:searchText", "searchText", searchFieldMask, body, &sp)
		}, func() bool { return sp.NextPageToken == "" }); err != nil {
			log.Error().Err(err).Str("query", q.Text).Int("page", page).Int("accumulated", len(out)).Msg("search page failed")
			return out, ""
		}

		for _, p := range sp.Places {
			if len(out) == q.MaxResults {
				break
			}
			out = append(out, p)
		}
		log.Debug().Str("query", q.Text).Int("page", page).Int("accumulated", len(out)).Msg("search page")
		token = sp.NextPageToken
		if token == "" || len(sp.Places) == 0 {
			return out, ""
		}
	}
	return out, token
}

type reviewsPage struct {
	Reviews       []map[string]any `json:"reviews"`
	NextPageToken string           `json:"nextPageToken"`
}

// Reviews pages through a place's reviews up to max. Reviews are not
// deduplicated. A failure returns what was collected before it.
func (c *Client) Reviews(ctx context.Context, placeID string, max int) []map[string]any {
	out := make([]map[string]any, 0)
	if placeID == "" || max <= 0 {
		return out
	}
	token := ""
	for page := 0; len(out) < max; page++ {
		if page > 0 && !shared.SleepCtx(ctx, c.pageDelay) {
			return out
		}
		v := url.Values{}
		if c.language != "" {
			v.Set("languageCode", c.language)
		}
		if token != "" {
			v.Set("pageToken", token)
		}
		u := c.base + "/places/" + url.PathEscape(placeID)
		if len(v) > 0 {
			u += "?" + v.Encode()
		}

		var rp reviewsPage
		if err := c.cached(ctx, "reviews", []byte(u), token, &rp, func() error {
			return c.do(ctx, http.MethodGet, u, "placeDetails", reviewsFieldMask, nil, &rp)
		}, func() bool { return rp.NextPageToken == "" }); err != nil {
			log.Error().Err(err).Str("place_id", placeID).Int("page", page).Int("accumulated", len(out)).Msg("reviews page failed")
			return out
		}
		for _, r := range rp.Reviews {
			if len(out) == max {
				break
			}
			out = append(out, r)
		}
		token = rp.NextPageToken
		// an empty page never advances; stop rather than spin
		if token == "" || len(rp.Reviews) == 0 {
			break
		}
	}
	return out
}

func searchBody(q domain.SearchQuery, pageSize int, token string) []byte {
	req := map[string]any{
		"textQuery": q.Text,
		"pageSize":  pageSize,
	}
	if q.Language != "" {
		req["languageCode"] = q.Language
	}
	if bias := locationBias(q); bias != nil {
		req["locationBias"] = bias
	}
	if token != "" {
		req["pageToken"] = token
	}
	b, _ := json.Marshal(req)
	return b
}

// locationBias prefers the polygon, sent as its bounding rectangle, over the
// circle.
func locationBias(q domain.SearchQuery) map[string]any {
	switch q.Bias() {
	case domain.BiasPolygon:
		low, high := q.Polygon[0], q.Polygon[0]
		for _, p := range q.Polygon[1:] {
			low.Lat, low.Lng = min(low.Lat, p.Lat), min(low.Lng, p.Lng)
			high.Lat, high.Lng = max(high.Lat, p.Lat), max(high.Lng, p.Lng)
		}
		return map[string]any{"rectangle": map[string]any{"low": low, "high": high}}
	case domain.BiasCircle:
		return map[string]any{"circle": map[string]any{
			"center": q.Circle.Center,
			"radius": q.Circle.RadiusM,
		}}
	}
	return nil
}

// ---- Internals ----

// cached serves a page from the cache when possible. Continuation tokens
// expire with the service, so token requests bypass the cache and only
// complete (token-free) responses are stored.
func (c *Client) cached(ctx context.Context, kind string, req []byte, token string, dst any, fetch func() error, complete func() bool) error {
	if c.cache == nil || token != "" {
		return fetch()
	}
	sum := sha1.Sum(req)
	key := "places:" + kind + ":" + hex.EncodeToString(sum[:])
	if ok, err := c.cache.Get(ctx, key, dst); err == nil && ok {
		return nil
	}
	if err := fetch(); err != nil {
		return err
	}
	if !complete() {
		return nil
	}
	if err := c.cache.Set(ctx, key, dst, c.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return nil
}

// do performs one request with client-side rate limiting and JSON decode into
// out. 429 and transient 5xx are retried only when retries are enabled,
// honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, method, u, endpoint, fieldMask string, body []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return err
		}
		req.Header.Set("X-Goog-Api-Key", c.key)
		req.Header.Set("X-Goog-FieldMask", fieldMask)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "places-scraper/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("places", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < attempts-1 && shared.SleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < attempts-1 && shared.SleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
