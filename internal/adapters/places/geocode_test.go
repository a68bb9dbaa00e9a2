package places_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"places_scraper/internal/adapters/places"
	"places_scraper/internal/domain"
)

func TestGeocoder_Lookup(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Hoi An" || r.Header.Get("User-Agent") != "test-agent" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"15.8801","lon":"108.3380"}]`))
	}))
	defer ts.Close()

	got, err := places.NewGeocoder(ts.URL, "test-agent").Lookup(context.Background(), "Hoi An")
	if err != nil {
		t.Fatal(err)
	}
	if got.Lat != 15.8801 || got.Lng != 108.338 {
		t.Fatalf("got %+v", got)
	}
}

func TestGeocoder_NoResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	_, err := places.NewGeocoder(ts.URL, "ua").Lookup(context.Background(), "Atlantis")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}
