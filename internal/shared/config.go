package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.New("invalid configuration")

const (
	StrategyBrowser = "browser"
	StrategyAPI     = "api"
	StrategyHybrid  = "hybrid"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	// Run
	Scraper      string
	SearchTerm   string
	Location     string // "lat,lng"; optional
	Polygon      [][2]float64
	RadiusKm     float64
	Categories   []string
	MaxPlaces    int
	MaxReviews   int
	LanguageCode string
	OutputDir    string
	Headless     bool
	DedupPlaces  bool

	// Places API
	PlacesBase    string
	PlacesKey     string
	PlacesRPS     int
	PlacesRetries int
	GeocoderURL   string
	GeocoderUA    string

	// Output publishing
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Load reads process settings from the environment. A .env file in the
// working directory is honoured but never overrides real variables.
func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", ""),
		RedisAddr:   env("REDIS_ADDR", ""),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		Scraper:      StrategyBrowser,
		LanguageCode: "en",
		MaxReviews:   100,
		OutputDir:    "output",
		Headless:     true,

		PlacesBase:    env("PLACES_BASE_URL", "https://places.googleapis.com/v1"),
		PlacesKey:     env("PLACES_API_KEY", ""),
		PlacesRPS:     atoi("PLACES_RPS", 5),
		PlacesRetries: atoi("PLACES_RETRIES", 0),
		GeocoderURL:   env("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUA:    env("GEOCODER_USER_AGENT", "places-scraper/1.0"),

		S3Bucket:    env("OUTPUT_S3_BUCKET", ""),
		S3Prefix:    env("OUTPUT_S3_PREFIX", "places/"),
		S3Region:    env("OUTPUT_S3_REGION", "auto"),
		S3Endpoint:  env("OUTPUT_S3_ENDPOINT", ""),
		S3AccessKey: env("OUTPUT_S3_ACCESS_KEY_ID", ""),
		S3SecretKey: env("OUTPUT_S3_SECRET_ACCESS_KEY", ""),
	}
	return c
}

// fileConfig mirrors config.json / config.yaml. Pointers tell "missing"
// apart from zero; camelCase keys are accepted for older files.
type fileConfig struct {
	Scraper      *string      `yaml:"scraper"`
	SearchTerm   *string      `yaml:"search_term"`
	TextQuery    *string      `yaml:"textQuery"`
	Location     *string      `yaml:"location"`
	Polygon      [][2]float64 `yaml:"polygon"`
	RadiusKm     *float64     `yaml:"radius_km"`
	RadiusKmAlt  *float64     `yaml:"radiusKm"`
	Categories   []string     `yaml:"categories"`
	MaxPlaces    *int         `yaml:"max_places"`
	MaxPlacesAlt *int         `yaml:"maxPlaces"`
	MaxReviews   *int         `yaml:"max_reviews"`
	MaxRevAlt    *int         `yaml:"maxReviews"`
	LanguageCode *string      `yaml:"language_code"`
	LangAlt      *string      `yaml:"languageCode"`
	OutputDir    *string      `yaml:"output_dir"`
	Headless     *bool        `yaml:"headless"`
	DedupPlaces  *bool        `yaml:"dedup_places"`
}

// LoadRun layers the run file (if any) and env overrides on top of Load().
// An empty path falls back to CONFIG_FILE, then config.yaml, then config.json.
func LoadRun(path string) (Config, error) {
	c := Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		for _, p := range []string{"config.yaml", "config.yml", "config.json"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		if err := c.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	setStr(&c.Scraper, fc.Scraper)
	setStr(&c.SearchTerm, fc.TextQuery)
	setStr(&c.SearchTerm, fc.SearchTerm)
	setStr(&c.Location, fc.Location)
	if len(fc.Polygon) > 0 {
		c.Polygon = fc.Polygon
	}
	if fc.RadiusKmAlt != nil {
		c.RadiusKm = *fc.RadiusKmAlt
	}
	if fc.RadiusKm != nil {
		c.RadiusKm = *fc.RadiusKm
	}
	if fc.Categories != nil {
		c.Categories = fc.Categories
	}
	if fc.MaxPlacesAlt != nil {
		c.MaxPlaces = *fc.MaxPlacesAlt
	}
	if fc.MaxPlaces != nil {
		c.MaxPlaces = *fc.MaxPlaces
	}
	if fc.MaxRevAlt != nil {
		c.MaxReviews = *fc.MaxRevAlt
	}
	if fc.MaxReviews != nil {
		c.MaxReviews = *fc.MaxReviews
	}
	setStr(&c.LanguageCode, fc.LangAlt)
	setStr(&c.LanguageCode, fc.LanguageCode)
	setStr(&c.OutputDir, fc.OutputDir)
	if fc.Headless != nil {
		c.Headless = *fc.Headless
	}
	if fc.DedupPlaces != nil {
		c.DedupPlaces = *fc.DedupPlaces
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Scraper = env("SCRAPER", c.Scraper)
	c.SearchTerm = env("SEARCH_TERM", c.SearchTerm)
	c.Location = env("LOCATION", c.Location)
	c.LanguageCode = env("LANGUAGE_CODE", c.LanguageCode)
	c.OutputDir = env("OUTPUT_DIR", c.OutputDir)
	if v := os.Getenv("CATEGORIES"); v != "" {
		c.Categories = SplitList(v)
	}

	var err error
	if c.RadiusKm, err = envFloat("RADIUS_KM", c.RadiusKm); err != nil {
		return err
	}
	if c.MaxPlaces, err = envInt("MAX_PLACES", c.MaxPlaces); err != nil {
		return err
	}
	if c.MaxReviews, err = envInt("MAX_REVIEWS", c.MaxReviews); err != nil {
		return err
	}
	if c.Headless, err = envBool("HEADLESS", c.Headless); err != nil {
		return err
	}
	if c.DedupPlaces, err = envBool("DEDUP_PLACES", c.DedupPlaces); err != nil {
		return err
	}
	return nil
}

// Validate fails fast, before any browser or network activity.
func (c Config) Validate() error {
	switch c.Scraper {
	case StrategyBrowser, StrategyAPI, StrategyHybrid:
	default:
		return fmt.Errorf("%w: scraper must be one of browser, api, hybrid (got %q)", ErrConfig, c.Scraper)
	}
	if strings.TrimSpace(c.SearchTerm) == "" && strings.TrimSpace(c.Location) == "" {
		return fmt.Errorf("%w: missing required field search_term (or location)", ErrConfig)
	}
	if c.Scraper == StrategyBrowser && strings.TrimSpace(c.SearchTerm) == "" {
		return fmt.Errorf("%w: browser strategy requires search_term", ErrConfig)
	}
	if c.RadiusKm <= 0 {
		return fmt.Errorf("%w: radius_km must be a positive number", ErrConfig)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: categories must be a non-empty list", ErrConfig)
	}
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("%w: categories[%d] is empty", ErrConfig, i)
		}
	}
	if c.MaxPlaces <= 0 {
		return fmt.Errorf("%w: max_places must be a positive integer", ErrConfig)
	}
	if c.Location != "" {
		if _, _, err := ParseLatLng(c.Location); err != nil {
			return fmt.Errorf("%w: location: %v", ErrConfig, err)
		}
	}
	if c.Scraper != StrategyBrowser {
		if c.MaxReviews <= 0 {
			return fmt.Errorf("%w: max_reviews must be a positive integer", ErrConfig)
		}
		if strings.TrimSpace(c.LanguageCode) == "" {
			return fmt.Errorf("%w: language_code is required for the %s strategy", ErrConfig, c.Scraper)
		}
		if len(c.Polygon) > 0 && len(c.Polygon) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 vertices", ErrConfig)
		}
	}
	if c.MaxReviews < 0 {
		return fmt.Errorf("%w: max_reviews must not be negative", ErrConfig)
	}
	return nil
}

// ParseLatLng parses "lat,lng".
func ParseLatLng(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want \"lat,lng\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("coordinate out of range: %q", s)
	}
	return lat, lng, nil
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrConfig, k, v)
	}
	return n, nil
}

func envFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrConfig, k, v)
	}
	return f, nil
}

func envBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrConfig, k, v)
	}
	return b, nil
}

// WarnMissingCredentials logs what a strategy will need before it is built.
func (c Config) WarnMissingCredentials() {
	if c.Scraper != StrategyBrowser && c.PlacesKey == "" {
		log.Warn().Str("scraper", c.Scraper).Msg("PLACES_API_KEY is empty")
	}
}
