//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"places_scraper/internal/domain"
	mysqlrepo "places_scraper/internal/storage/mysql"
)

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// startMySQL runs an isolated MySQL; Docker picks a free host port.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=places",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "places")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func TestRepo_MySQL_UpsertAndQuery(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	p := domain.Place{
		Name:         "Phở Hòa",
		Address:      "12 Lê Lợi, Quận 1",
		Phone:        "+84 28 1234 5678",
		Rating:       4.6,
		TotalReviews: 812,
		URL:          "https://www.google.com/maps/place/pho-hoa",
		Category:     "restaurants",
	}
	p.SetReviews([]domain.Review{
		{Author: "Ana", Text: "Ngon lắm", Rating: 5, Time: "2 weeks ago"},
		{Author: "Bob", Text: "Ok", Rating: 3, Time: "a month ago"},
	})

	id, err := repo.UpsertPlace(ctx, "run-1", p)
	if err != nil {
		t.Fatalf("UpsertPlace: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a row id")
	}
	if err := repo.UpsertReviews(ctx, id, p.Reviews); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}

	// second run: same key keeps the id, empty fields keep stored values
	p2 := p
	p2.Phone = ""
	p2.Rating = 4.7
	again, err := repo.UpsertPlace(ctx, "run-2", p2)
	if err != nil {
		t.Fatalf("UpsertPlace again: %v", err)
	}
	if again != id {
		t.Fatalf("upsert id changed: %d -> %d", id, again)
	}
	if err := repo.UpsertReviews(ctx, id, p.Reviews); err != nil {
		t.Fatalf("UpsertReviews again: %v", err)
	}

	pv, err := repo.GetPlace(ctx, id)
	if err != nil {
		t.Fatalf("GetPlace: %v", err)
	}
	if pv.Name != "Phở Hòa" || pv.Phone != "+84 28 1234 5678" || pv.Rating != 4.7 || pv.RunID != "run-2" {
		t.Fatalf("unexpected place view: %+v", pv)
	}

	rs, err := repo.ListReviews(ctx, id, domain.PageQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(rs.Items) != 2 || rs.Items[0].Author != "Ana" || rs.Items[1].Author != "Bob" {
		t.Fatalf("unexpected reviews: %+v", rs.Items)
	}

	// same place under another category is a separate row
	p3 := p
	p3.Category = "cafes"
	if _, err := repo.UpsertPlace(ctx, "run-2", p3); err != nil {
		t.Fatalf("UpsertPlace cafes: %v", err)
	}

	all, err := repo.ListPlaces(ctx, domain.PlacesQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListPlaces: %v", err)
	}
	if len(all.Items) != 2 {
		t.Fatalf("want 2 places, got %d", len(all.Items))
	}
	cafes, err := repo.ListPlaces(ctx, domain.PlacesQuery{Category: "cafes", Limit: 10})
	if err != nil {
		t.Fatalf("ListPlaces cafes: %v", err)
	}
	if len(cafes.Items) != 1 || cafes.Items[0].Category != "cafes" {
		t.Fatalf("unexpected cafes: %+v", cafes.Items)
	}

	if _, err := repo.GetPlace(ctx, id+1000); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
