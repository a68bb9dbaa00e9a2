package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"places_scraper/internal/adapters/browser"
	"places_scraper/internal/adapters/jsonout"
	"places_scraper/internal/adapters/observability"
	"places_scraper/internal/adapters/places"
	redisad "places_scraper/internal/adapters/redis"
	"places_scraper/internal/adapters/s3publish"
	"places_scraper/internal/app"
	"places_scraper/internal/domain"
	"places_scraper/internal/shared"
	mysqlrepo "places_scraper/internal/storage/mysql"
)

type flags struct {
	config     string
	strategy   string
	categories string
	maxPlaces  int
	maxReviews int
	headless   bool
}

func main() {
	var f flags
	cmd := &cobra.Command{
		Use:           "harvester",
		Short:         "Collect places and reviews into a JSON file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadRun(f.config)
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &cfg)
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "run config file (yaml or json)")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "browser, api or hybrid")
	cmd.Flags().StringVar(&f.categories, "categories", "", "comma separated categories")
	cmd.Flags().IntVar(&f.maxPlaces, "max-places", 0, "places per category")
	cmd.Flags().IntVar(&f.maxReviews, "max-reviews", 0, "reviews per place")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "run the browser headless")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("harvest failed")
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags win over file and env.
func applyFlags(cmd *cobra.Command, f flags, cfg *shared.Config) {
	fs := cmd.Flags()
	if fs.Changed("strategy") {
		cfg.Scraper = strings.ToLower(strings.TrimSpace(f.strategy))
	}
	if fs.Changed("categories") {
		cfg.Categories = shared.SplitList(f.categories)
	}
	if fs.Changed("max-places") {
		cfg.MaxPlaces = f.maxPlaces
	}
	if fs.Changed("max-reviews") {
		cfg.MaxReviews = f.maxReviews
	}
	if fs.Changed("headless") {
		cfg.Headless = f.headless
	}
}

func run(ctx context.Context, cfg shared.Config) (err error) {
	log.Logger = observability.NewLogger(cfg.AppEnv, "harvester")

	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.WarnMissingCredentials()

	runID := uuid.New().String()
	log.Info().
		Str("run_id", runID).
		Str("scraper", cfg.Scraper).
		Str("search_term", cfg.SearchTerm).
		Strs("categories", cfg.Categories).
		Int("max_places", cfg.MaxPlaces).
		Int("max_reviews", cfg.MaxReviews).
		Msg("harvester starting")

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if perr := rc.Ping(ctx); perr != nil {
			log.Warn().Err(perr).Msg("redis unavailable, API responses will not be cached")
		} else {
			cache = rc
		}
	}

	src, err := buildSource(ctx, cfg, cache)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := jsonout.Create(cfg.OutputDir, time.Now())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	log.Info().Str("path", out.Path).Msg("output opened")

	opts := []app.HarvestOption{app.WithPlaceDedup(cfg.DedupPlaces)}
	if cfg.MySQLDSN != "" {
		db, derr := mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if derr != nil {
			return derr
		}
		defer db.Close()
		opts = append(opts, app.WithMirror(mysqlrepo.New(db)))
		log.Info().Msg("mirroring records to mysql")
	}
	svc := app.NewHarvestService(src, out, runID, cfg.MaxReviews, opts...)

	reg := observability.InitRegistry()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return observability.Serve(gctx, cfg.MetricsAddr, reg) })

	var sum app.RunSummary
	g.Go(func() error {
		defer cancel()
		var rerr error
		sum, rerr = svc.Run(gctx, cfg.Categories)
		return rerr
	})
	err = g.Wait()
	app.LogSummary(runID, sum)
	if err != nil {
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}
	if cfg.S3Bucket != "" {
		return publish(ctx, cfg, out.Path)
	}
	return nil
}

func buildSource(ctx context.Context, cfg shared.Config, cache domain.Cache) (domain.PlaceSource, error) {
	sc := app.SourceConfig{
		Locality:  cfg.SearchTerm,
		RadiusKm:  cfg.RadiusKm,
		MaxPlaces: cfg.MaxPlaces,
		Language:  cfg.LanguageCode,
	}
	for _, v := range cfg.Polygon {
		sc.Polygon = append(sc.Polygon, domain.LatLng{Lat: v[0], Lng: v[1]})
	}

	var deps app.SourceDeps
	if cfg.Scraper == shared.StrategyAPI || cfg.Scraper == shared.StrategyHybrid {
		opts := []places.Option{
			places.WithRetries(cfg.PlacesRetries),
			places.WithLanguage(cfg.LanguageCode),
		}
		if cache != nil {
			opts = append(opts, places.WithCache(cache, cfg.CacheTTL))
		}
		client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS, opts...)
		if err != nil {
			return nil, fmt.Errorf("places client: %w", err)
		}
		deps.API = client
		geo := places.NewGeocoder(cfg.GeocoderURL, cfg.GeocoderUA)
		sc.Center = app.ResolveCenter(ctx, geo, cfg.Location, cfg.SearchTerm)
		log.Info().Float64("lat", sc.Center.Lat).Float64("lng", sc.Center.Lng).Msg("search center")
	}
	if cfg.Scraper == shared.StrategyBrowser || cfg.Scraper == shared.StrategyHybrid {
		sess, err := browser.NewSession(ctx, browser.Options{Headless: cfg.Headless, Language: cfg.LanguageCode})
		if err != nil {
			return nil, err
		}
		deps.Feed = browser.NewFeedHarvester(sess)
		deps.Reviews = browser.NewReviewHarvester(sess)
		deps.Closer = sess
	}

	src, err := app.NewSource(cfg.Scraper, sc, deps)
	if err != nil {
		if deps.Closer != nil {
			_ = deps.Closer.Close()
		}
		return nil, err
	}
	return src, nil
}

func publish(ctx context.Context, cfg shared.Config, path string) error {
	pub, err := s3publish.New(s3publish.Config{
		Bucket:    cfg.S3Bucket,
		Prefix:    cfg.S3Prefix,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return err
	}
	if _, err := pub.Publish(ctx, path); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("publish output: %w", err)
	}
	return nil
}
