package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/maltedev/boiler-scraper/internal/brands"
	"github.com/maltedev/boiler-scraper/internal/models"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

type Config struct {
	Server   ServerConfig
	Site     SiteConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Relay    RelayConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
	Store    StoreConfig
	Brands   *brands.Catalog
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SiteConfig describes the catalog being crawled.
type SiteConfig struct {
	BaseURL       string
	TargetPage    string
	FilterParams  string
	ListingMarker string
	ProductMarker string
}

type ScraperConfig struct {
	MaxRetries      int
	RetryDelay      time.Duration
	RetryBackoff    float64
	PageDelay       time.Duration
	PaginationDelay time.Duration
	AdaptiveDelay   bool
	MaxPages        int
	MaxImages       int
	BatchSize       int
	ValidateImages  bool
	CheckImages     bool
	ImageTimeout    time.Duration
	RefreshExisting bool
	RespectRobots   bool
	PriceFallback   string
	BrandsFile      string
}

type BrowserConfig struct {
	Headless       bool
	PageTimeout    time.Duration
	ElementTimeout time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RelayConfig struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int
	Stream       string
	StreamMaxLen int64
}

type MetricsConfig struct {
	Enabled bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the persistence backend: "postgres" or "file".
type StoreConfig struct {
	Backend  string
	FilePath string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8080),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Site: SiteConfig{
			BaseURL:       getEnvOrDefault("SITE_BASE_URL", "https://azbukatepla.by"),
			TargetPage:    getEnvOrDefault("SITE_TARGET_PAGE", "/product-cat/kotly-otopleniya/elektricheskie-kotly"),
			FilterParams:  getEnvOrDefault("SITE_FILTER_PARAMS", "?fwp__k_type=elektricheskij"),
			ListingMarker: getEnvOrDefault("SITE_LISTING_MARKER", ".products"),
			ProductMarker: getEnvOrDefault("SITE_PRODUCT_MARKER", ".product"),
		},
		Scraper: ScraperConfig{
			MaxRetries:      getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			RetryDelay:      getDurationOrDefault("SCRAPER_RETRY_DELAY", 5*time.Second),
			RetryBackoff:    getFloatOrDefault("SCRAPER_RETRY_BACKOFF", 1.0),
			PageDelay:       getDurationOrDefault("SCRAPER_PAGE_DELAY", time.Second),
			PaginationDelay: getDurationOrDefault("SCRAPER_PAGINATION_DELAY", time.Second),
			AdaptiveDelay:   getBoolOrDefault("SCRAPER_ADAPTIVE_DELAY", false),
			MaxPages:        getIntOrDefault("SCRAPER_MAX_PAGES", 50),
			MaxImages:       getIntOrDefault("SCRAPER_MAX_IMAGES", models.MaxImages),
			BatchSize:       getIntOrDefault("SCRAPER_BATCH_SIZE", 50),
			ValidateImages:  getBoolOrDefault("SCRAPER_VALIDATE_IMAGES", true),
			CheckImages:     getBoolOrDefault("SCRAPER_CHECK_IMAGES", false),
			ImageTimeout:    getDurationOrDefault("SCRAPER_IMAGE_TIMEOUT", 3*time.Second),
			RefreshExisting: getBoolOrDefault("SCRAPER_REFRESH_EXISTING", false),
			RespectRobots:   getBoolOrDefault("SCRAPER_RESPECT_ROBOTS", true),
			PriceFallback:   getEnvOrDefault("SCRAPER_PRICE_FALLBACK", "Цену и наличие товара уточняйте у продавца"),
			BrandsFile:      getEnvOrDefault("BRANDS_FILE", ""),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			PageTimeout:    getDurationOrDefault("BROWSER_PAGE_TIMEOUT", 15*time.Second),
			ElementTimeout: getDurationOrDefault("BROWSER_ELEMENT_TIMEOUT", 10*time.Second),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", DefaultUserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "ru-RU,ru;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Minsk"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ru-RU"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "boilers"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 5)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Relay: RelayConfig{
			Enabled:      getBoolOrDefault("RELAY_ENABLED", true),
			PollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getIntOrDefault("RELAY_BATCH_SIZE", 100),
			Stream:       getEnvOrDefault("RELAY_STREAM", "stream:boiler_catalog"),
			StreamMaxLen: int64(getIntOrDefault("RELAY_STREAM_MAXLEN", 10000)),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolOrDefault("METRICS_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Store: StoreConfig{
			Backend:  getEnvOrDefault("STORE_BACKEND", "postgres"),
			FilePath: getEnvOrDefault("STORE_FILE", "boilers.json"),
		},
		Brands: brands.Default(),
	}

	targets := getStringSliceOrDefault("SCRAPER_TARGET_BRANDS", nil)

	if cfg.Scraper.BrandsFile != "" {
		catalog, err := brands.LoadFile(cfg.Scraper.BrandsFile)
		if err != nil {
			return nil, err
		}
		cfg.Brands = catalog
	}
	if len(targets) > 0 {
		cfg.Brands.Targets = targets
	}

	return cfg, nil
}

// CatalogURL is the first listing page: base + target page + filter.
func (c *Config) CatalogURL() string {
	return strings.TrimRight(c.Site.BaseURL, "/") + c.Site.TargetPage + c.Site.FilterParams
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITE_BASE_URL must be an absolute URL, got %q", c.Site.BaseURL)
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.BatchSize < 1 {
		return fmt.Errorf("SCRAPER_BATCH_SIZE must be at least 1")
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.MaxImages < 1 || c.Scraper.MaxImages > models.MaxImages {
		return fmt.Errorf("SCRAPER_MAX_IMAGES must be between 1 and %d", models.MaxImages)
	}

	if c.Scraper.RetryBackoff < 1 {
		return fmt.Errorf("SCRAPER_RETRY_BACKOFF cannot be less than 1")
	}

	switch c.Store.Backend {
	case "postgres", "file":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or file, got %q", c.Store.Backend)
	}

	if c.Brands == nil || len(c.Brands.Targets) == 0 {
		return fmt.Errorf("at least one target brand is required")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
