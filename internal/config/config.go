package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/resume-rag/jobscraper/pkg/logger"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Browser   BrowserConfig   `yaml:"browser"`
	Sinks     SinksConfig     `yaml:"sinks"`
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ScraperConfig drives the façade and the pagination engine.
type ScraperConfig struct {
	Concurrency int           `yaml:"concurrency"`
	SlowMo      time.Duration `yaml:"slow_mo"`
	SettleDelay time.Duration `yaml:"settle_delay"`

	PollInterval      time.Duration `yaml:"poll_interval"`
	ContainerTimeout  time.Duration `yaml:"container_timeout"`
	DetailsTimeout    time.Duration `yaml:"details_timeout"`
	LoadMoreTimeout   time.Duration `yaml:"load_more_timeout"`
	PaginationTimeout time.Duration `yaml:"pagination_timeout"`
	ApplyLinkTimeout  time.Duration `yaml:"apply_link_timeout"`
	ApplyLinkInterval time.Duration `yaml:"apply_link_interval"`

	EmitDataFile bool `yaml:"emit_data_file"`

	// SessionToken is only read from the environment.
	SessionToken string `yaml:"-"`
	CookieName   string `yaml:"cookie_name"`
	CookieDomain string `yaml:"cookie_domain"`
	HomeURL      string `yaml:"home_url"`
	SearchURL    string `yaml:"search_url"`

	Dialect Dialect `yaml:"dialect"`
}

// Authenticated reports whether a session token is configured.
func (s ScraperConfig) Authenticated() bool {
	return s.SessionToken != ""
}

// Dialect is the query-string encoding accepted by the listing site.
type Dialect struct {
	PageSize      int          `yaml:"page_size"`
	Anonymous     TimeEncoding `yaml:"anonymous"`
	Authenticated TimeEncoding `yaml:"authenticated"`
}

// TimeEncoding maps time windows to a parameter and its values.
// Windows missing from Values are not encoded.
type TimeEncoding struct {
	Param  string            `yaml:"param"`
	Values map[string]string `yaml:"values"`
}

type BrowserConfig struct {
	Headless        bool          `yaml:"headless"`
	ChromePath      string        `yaml:"chrome_path"`
	ProxyURL        string        `yaml:"proxy_url"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	WindowWidth     int           `yaml:"window_width"`
	WindowHeight    int           `yaml:"window_height"`
	DisableImages   bool          `yaml:"disable_images"`
	// UserAgents overrides the built-in rotation list.
	UserAgents []string `yaml:"user_agents"`
}

type SinksConfig struct {
	SanitizeHTML bool           `yaml:"sanitize_html"`
	File         FileSinkConfig `yaml:"file"`
	Redis        RedisConfig    `yaml:"redis"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue"`
}

type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	Table    string `yaml:"table"`
	// URL takes precedence over the discrete fields when set.
	URL string `yaml:"url"`
}

func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return "postgres://" + p.User + ":" + p.Password + "@" + p.Host + ":" +
		strconv.Itoa(p.Port) + "/" + p.Database + "?sslmode=" + p.SSLMode
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Debug        bool          `yaml:"debug"`
	// MaxTasks bounds how many finished tasks stay queryable.
	MaxTasks int `yaml:"max_tasks"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Spec        string `yaml:"spec"`
	QueriesFile string `yaml:"queries_file"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", configPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("config file not found, using defaults")
		default:
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	// Override with environment variables
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without consulting files or the environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Scraper: ScraperConfig{
			Concurrency:       2,
			SlowMo:            500 * time.Millisecond,
			SettleDelay:       2 * time.Second,
			PollInterval:      50 * time.Millisecond,
			ContainerTimeout:  15 * time.Second,
			DetailsTimeout:    5 * time.Second,
			LoadMoreTimeout:   5 * time.Second,
			PaginationTimeout: 5 * time.Second,
			ApplyLinkTimeout:  4 * time.Second,
			ApplyLinkInterval: 100 * time.Millisecond,
			CookieName:        "li_at",
			CookieDomain:      ".www.linkedin.com",
			HomeURL:           "https://www.linkedin.com",
			SearchURL:         "https://www.linkedin.com/jobs/search",
			Dialect:           DefaultDialect(),
		},
		Browser: BrowserConfig{
			Headless:        true,
			PageLoadTimeout: 20 * time.Second,
			WindowWidth:     1472,
			WindowHeight:    828,
			DisableImages:   true,
		},
		Sinks: SinksConfig{
			SanitizeHTML: true,
			File: FileSinkConfig{
				Dir: "data",
			},
			Redis: RedisConfig{
				Addr:  "localhost:6379",
				Queue: "jobs:scraped",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "jobscraper",
				Password: "password",
				Database: "jobscraper",
				SSLMode:  "disable",
				Table:    "scraped_jobs",
			},
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxTasks:     100,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         600,
		},
		Scheduler: SchedulerConfig{
			Spec: "@every 6h",
		},
	}
}

// DefaultDialect is the encoding the listing site accepted at the time of writing.
func DefaultDialect() Dialect {
	return Dialect{
		PageSize: 25,
		Anonymous: TimeEncoding{
			Param: "f_TP",
			Values: map[string]string{
				"day":   "1",
				"week":  "1,2",
				"month": "1,2,3,4",
			},
		},
		Authenticated: TimeEncoding{
			Param: "f_TPR",
			Values: map[string]string{
				"day":   "r86400",
				"week":  "r604800",
				"month": "r2592000",
			},
		},
	}
}

// Validate rejects settings the scraper cannot run with.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Scraper.Concurrency < 1 {
		return fmt.Errorf("scraper.concurrency must be >= 1, got %d", c.Scraper.Concurrency)
	}
	if c.Scraper.SlowMo < 0 {
		return fmt.Errorf("scraper.slow_mo must not be negative")
	}
	if c.Scraper.PollInterval <= 0 {
		return fmt.Errorf("scraper.poll_interval must be positive")
	}
	if c.Scraper.Dialect.PageSize < 1 {
		return fmt.Errorf("scraper.dialect.page_size must be >= 1, got %d", c.Scraper.Dialect.PageSize)
	}
	if c.Scheduler.Enabled && c.Scheduler.QueriesFile == "" {
		return fmt.Errorf("scheduler.queries_file is required when the scheduler is enabled")
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Scraper
	if v := os.Getenv("LI_AT_COOKIE"); v != "" {
		c.Scraper.SessionToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("LJS_WAIT_CONTAINER_TIMEOUT"); v != "" {
		if d, ok := parseSeconds(v); ok {
			c.Scraper.ContainerTimeout = d
		}
	}
	if v := os.Getenv("SCRAPER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scraper.Concurrency = n
		}
	}
	if v := os.Getenv("SCRAPER_SLOW_MO"); v != "" {
		if d, ok := parseSeconds(v); ok {
			c.Scraper.SlowMo = d
		}
	}

	// Browser
	if v := os.Getenv("HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		c.Browser.ChromePath = v
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		c.Browser.ProxyURL = v
	}

	// Sinks
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Sinks.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Sinks.Redis.Password = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Sinks.Postgres.URL = v
	}

	// Server
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DEBUG"); v == "true" {
		c.Server.Debug = true
	}
}

// parseSeconds accepts a duration string or a plain number of seconds.
func parseSeconds(v string) (time.Duration, bool) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), true
	}
	return 0, false
}
