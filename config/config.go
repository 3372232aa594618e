package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-floor/floor"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	GinMode     string
	JWTSecret   string
	CORSOrigins []string
	SeedOnStart bool

	// Admin is created on start when no admin account exists yet.
	Admin AdminConfig

	Security SecurityConfig

	Database DatabaseConfig

	Floor floor.Policy
	// CycleSchedule is a cron spec for background cycles. Empty disables them.
	CycleSchedule string
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

// SecurityConfig drives the security response headers. HSTS stays off until
// HSTS_MAX_AGE_SECONDS is set, since it only makes sense behind TLS.
type SecurityConfig struct {
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
}

type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// policyFile is the shape of FLOOR_CONFIG_FILE.
type policyFile struct {
	Floor         floor.Policy `yaml:"floor"`
	CycleSchedule string       `yaml:"cycle_schedule"`
}

// Load reads the configuration from the environment. The floor policy starts
// from the defaults, is overlaid by FLOOR_CONFIG_FILE when set and then by the
// individual FLOOR_* variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "debug"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
		SeedOnStart: getEnvAsBoolOrDefault("SEED_ON_START", true),
		Admin: AdminConfig{
			Name:     getEnvOrDefault("ADMIN_NAME", "Floor Manager"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Security: SecurityConfig{
			HSTSMaxAge:            time.Duration(getEnvAsIntOrDefault("HSTS_MAX_AGE_SECONDS", 0)) * time.Second,
			HSTSIncludeSubdomains: getEnvAsBoolOrDefault("HSTS_INCLUDE_SUBDOMAINS", false),
			ContentSecurityPolicy: os.Getenv("CONTENT_SECURITY_POLICY"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnvOrDefault("DB_DRIVER", "sqlite")),
			DSN:      os.Getenv("DB_DSN"),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnvOrDefault("DB_NAME", "restaurant_floor"),
		},
		Floor: floor.DefaultPolicy(),
	}

	if path := os.Getenv("FLOOR_CONFIG_FILE"); path != "" {
		if err := cfg.loadPolicyFile(path); err != nil {
			return nil, err
		}
	}

	p := &cfg.Floor
	p.AvgDiningMinutes = getEnvAsIntOrDefault("FLOOR_AVG_DINING_MINUTES", p.AvgDiningMinutes)
	p.StaleThresholdMinutes = getEnvAsIntOrDefault("FLOOR_STALE_THRESHOLD_MINUTES", p.StaleThresholdMinutes)
	p.WaitIncrementMinutes = getEnvAsIntOrDefault("FLOOR_WAIT_INCREMENT_MINUTES", p.WaitIncrementMinutes)
	p.Availability = floor.AvailabilityBasis(getEnvOrDefault("FLOOR_ETA_AVAILABILITY", string(p.Availability)))
	p.NotificationLogSize = getEnvAsIntOrDefault("FLOOR_NOTIFICATION_LOG_SIZE", p.NotificationLogSize)
	cfg.CycleSchedule = getEnvOrDefault("FLOOR_CYCLE_SCHEDULE", cfg.CycleSchedule)

	if cfg.Security.HSTSMaxAge < 0 {
		return nil, fmt.Errorf("HSTS_MAX_AGE_SECONDS must not be negative")
	}
	if cfg.Admin.Email != "" && len(cfg.Admin.Password) < 8 {
		return nil, fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	if err := cfg.Floor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid floor policy: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadPolicyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read floor config %s: %w", path, err)
	}
	file := policyFile{Floor: c.Floor}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse floor config %s: %w", path, err)
	}
	c.Floor = file.Floor
	c.CycleSchedule = file.CycleSchedule
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
