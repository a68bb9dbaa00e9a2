package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"places_scraper/internal/domain"
)

type Repo struct{ db *sql.DB }

var _ domain.PlaceRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects and pings with a bounded wait.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

func hash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (r *Repo) UpsertPlace(ctx context.Context, runID string, p domain.Place) (int64, error) {
	res, err := r.db.ExecContext(ctx, upsertPlaceSQL,
		hash(p.Key()),
		p.Category,
		runID,
		p.Name,
		p.Address,
		p.Phone,
		p.Website,
		p.Rating,
		p.TotalReviews,
		p.CollectedReviews,
		p.URL,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpsertReviews(ctx context.Context, placeID int64, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*7) // 7 params per row
	for i, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?)")
		args = append(args,
			placeID,
			hash(rv.DedupKey()),
			i,
			rv.Author,
			rv.Rating,
			rv.Text,
			rv.Time,
		)
	}
	q := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlace(s scanner) (domain.PlaceView, error) {
	var pv domain.PlaceView
	err := s.Scan(
		&pv.ID,
		&pv.Name,
		&pv.Address,
		&pv.Phone,
		&pv.Website,
		&pv.Rating,
		&pv.TotalReviews,
		&pv.CollectedReviews,
		&pv.URL,
		&pv.Category,
		&pv.RunID,
	)
	return pv, err
}

func (r *Repo) GetPlace(ctx context.Context, id int64) (domain.PlaceView, error) {
	pv, err := scanPlace(r.db.QueryRowContext(ctx, getPlaceSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PlaceView{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PlaceView{}, err
	}
	return pv, nil
}

func (r *Repo) ListPlaces(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error) {
	rows, err := r.db.QueryContext(ctx, listPlacesSQL, q.Category, q.Category, q.Limit)
	if err != nil {
		return domain.PlacesPage{}, err
	}
	defer rows.Close()

	out := make([]domain.PlaceView, 0)
	for rows.Next() {
		pv, err := scanPlace(rows)
		if err != nil {
			return domain.PlacesPage{}, err
		}
		out = append(out, pv)
	}
	return domain.PlacesPage{Items: out}, rows.Err()
}

func (r *Repo) ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, id, pg.Limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	out := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.Author, &rv.Text, &rv.Rating, &rv.Time); err != nil {
			return domain.ReviewsPage{}, err
		}
		out = append(out, rv)
	}
	return domain.ReviewsPage{Items: out}, rows.Err()
}
