package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInteraction marks a control that could not be located or clicked
	// in time. It is fatal to the current record's enrichment only.
	ErrInteraction = errors.New("interaction failed")
)

// Session is a page-rendering browser session. One harvester owns it at a time.
type Session interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Eval(ctx context.Context, script string, out any) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}

// PlaceSource is one collection strategy.
type PlaceSource interface {
	Name() string
	ListPlaces(ctx context.Context, category string) ([]*Place, error)
	// EnrichReviews may also fill address/phone on p.
	EnrichReviews(ctx context.Context, p *Place, max int) ([]Review, error)
	Close() error
}

// PlacesAPI is the paginated search/lookup service. Payloads stay opaque maps.
type PlacesAPI interface {
	Search(ctx context.Context, q SearchQuery) ([]map[string]any, string)
	Reviews(ctx context.Context, placeID string, max int) []map[string]any
}

// RecordWriter receives finalized records in output order.
type RecordWriter interface {
	Append(v any) error
}

type PlaceRepository interface {
	// Write paths
	UpsertPlace(ctx context.Context, runID string, p Place) (int64, error)
	UpsertReviews(ctx context.Context, placeID int64, rs []Review) error

	// Read paths
	GetPlace(ctx context.Context, id int64) (PlaceView, error)
	ListPlaces(ctx context.Context, q PlacesQuery) (PlacesPage, error)
	ListReviews(ctx context.Context, id int64, pg PageQuery) (ReviewsPage, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries
type PlaceView struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Phone            string  `json:"phone"`
	Website          string  `json:"website"`
	Rating           float64 `json:"rating"`
	TotalReviews     int     `json:"total_reviews"`
	CollectedReviews int     `json:"collected_reviews"`
	URL              string  `json:"url"`
	Category         string  `json:"category"`
	RunID            string  `json:"run_id"`
}

type PlacesQuery struct {
	Category string
	Limit    int
}

type PageQuery struct {
	Limit int
}

type PlacesPage struct {
	Items []PlaceView `json:"items"`
}

type ReviewsPage struct {
	Items []Review `json:"items"`
}
