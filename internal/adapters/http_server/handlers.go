// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"places_scraper/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Queries is the read side the handlers need.
type Queries interface {
	GetPlace(ctx context.Context, id int64) (domain.PlaceView, error)
	ListPlaces(ctx context.Context, q domain.PlacesQuery) (domain.PlacesPage, error)
	ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error)
}

type Handlers struct{ Q Queries }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/places", h.listPlaces)
	s.mux.Get("/v1/places/{id}", h.getPlace)
	s.mux.Get("/v1/places/{id}/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any, what string) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("handler", what).Msg("failed to write body")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return defaultLimit, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > maxLimit {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
		return 0, false
	}
	return l, true
}

func (h *Handlers) failed(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Str("resource", what).Msg("query failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func (h *Handlers) getPlace(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	resp, err := h.Q.GetPlace(r.Context(), id)
	if err != nil {
		h.failed(w, err, "place")
		return
	}
	writeJSON(w, r, resp, "getPlace")
}

func (h *Handlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	q := domain.PlacesQuery{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Limit:    limit,
	}
	out, err := h.Q.ListPlaces(r.Context(), q)
	if err != nil {
		h.failed(w, err, "places")
		return
	}
	writeJSON(w, r, out, "listPlaces")
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	out, err := h.Q.ListReviews(r.Context(), id, domain.PageQuery{Limit: limit})
	if err != nil {
		h.failed(w, err, "reviews")
		return
	}
	writeJSON(w, r, out, "listReviews")
}
