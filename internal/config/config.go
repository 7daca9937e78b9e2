package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

// AppConfig is the single parameterized configuration shared by the master
// and slave binaries.
type AppConfig struct {
	General GeneralConfig
	Master  MasterConfig
	Slave   SlaveConfig
}

// GeneralConfig holds settings shared by both binaries.
type GeneralConfig struct {
	LogFile  string // empty logs to stderr
	LogLevel string `validate:"oneof=debug info warn error"`
}

// MasterConfig drives the fetch loop and the publication server.
type MasterConfig struct {
	APIBaseURL string `validate:"required,url"`
	APIToken   string `validate:"required"`

	// Throttle is waited before every site request, the first one included.
	Throttle    time.Duration `validate:"gte=0"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// BreakerThreshold is the number of consecutive failed API requests after
	// which the upstream is reported degraded. Requests are never skipped.
	// 0 disables reporting.
	BreakerThreshold int `validate:"gte=0"`

	ResultFile  string `validate:"required"`
	PublishRoot string `validate:"required"`
	SitesFile   string `validate:"required"`

	// Daemon mode is enabled when either Schedule or Interval is set.
	Schedule string
	Interval time.Duration `validate:"gte=0"`
	Port     string        `validate:"required,numeric"`
}

// Daemon reports whether the master should keep running on a schedule.
func (m MasterConfig) Daemon() bool {
	return m.Schedule != "" || m.Interval > 0
}

// SlaveConfig drives a single store-object pull.
type SlaveConfig struct {
	StoreURL       string        `validate:"required,url"`
	ObjectCodeFile string        `validate:"required"`
	TargetPath     string        // empty derives <site>.json
	HTTPTimeout    time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.General.LogFile = os.Getenv("LOG_FILE")
	cfg.General.LogLevel = getenvDefault("LOG_LEVEL", "info")

	httpTimeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg.Master.APIBaseURL = getenvDefault("WEATHER_API_URL", "https://api.gismeteo.net/v2")
	cfg.Master.APIToken = os.Getenv("WEATHER_API_TOKEN")
	cfg.Master.HTTPTimeout = httpTimeout
	if cfg.Master.BreakerThreshold, err = getenvInt("BREAKER_THRESHOLD", 5); err != nil {
		return nil, err
	}
	cfg.Master.ResultFile = getenvDefault("WEATHER_RESULT_FILE", "weather_result.json")
	cfg.Master.PublishRoot = getenvDefault("STORE_DIR", "store")
	cfg.Master.SitesFile = getenvDefault("SITES_FILE", "sites.yaml")
	cfg.Master.Port = getenvDefault("PORT", "8080")
	cfg.Master.Schedule = os.Getenv("FETCH_SCHEDULE")

	// The upstream API allows a few requests per second.
	if cfg.Master.Throttle, err = getenvDuration("THROTTLE_INTERVAL", "300ms"); err != nil {
		return nil, err
	}
	if cfg.Master.Interval, err = getenvDuration("FETCH_INTERVAL", "0"); err != nil {
		return nil, err
	}

	cfg.Slave.StoreURL = getenvDefault("MASTER_STORE_URL", "http://localhost:8080/store/")
	cfg.Slave.ObjectCodeFile = getenvDefault("OBJECT_CODE_FILE", "object_code.txt")
	cfg.Slave.TargetPath = os.Getenv("OBJECT_DATA_FILE")
	cfg.Slave.HTTPTimeout = httpTimeout

	if err := validate.Struct(cfg.General); err != nil {
		return nil, fmt.Errorf("invalid general config: %w", err)
	}

	return cfg, nil
}

// ValidateMaster checks the settings only the master needs.
func (c *AppConfig) ValidateMaster() error {
	if err := validate.Struct(c.Master); err != nil {
		return fmt.Errorf("invalid master config: %w", err)
	}
	if c.Master.Schedule != "" {
		if _, err := cron.ParseStandard(c.Master.Schedule); err != nil {
			return fmt.Errorf("invalid FETCH_SCHEDULE: %w", err)
		}
	}
	return nil
}

// ValidateSlave checks the settings only the slave needs.
func (c *AppConfig) ValidateSlave() error {
	if err := validate.Struct(c.Slave); err != nil {
		return fmt.Errorf("invalid slave config: %w", err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
