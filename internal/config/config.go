package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the console.
type Config struct {
	// HTTP server for the operator API
	HTTPPort int `yaml:"http_port"`

	// Detection backend websocket endpoint
	BackendURL string `yaml:"backend_url"`

	// Journal database. A postgres:// DSN selects PostgreSQL; anything
	// else is a SQLite path.
	JournalDSN string `yaml:"journal_dsn"`

	// Alert sound file; empty disables local audio playback
	AlertSoundPath string `yaml:"alert_sound_path"`

	// Slack mirror for critical alerts; empty token disables it
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackChannel  string `yaml:"slack_channel"`

	// Operator API authentication
	AdminUsername  string `yaml:"admin_username"`
	AdminPassword  string `yaml:"admin_password"`
	JWTSecret      string `yaml:"-"`
	JWTExpiryHours int    `yaml:"jwt_expiry_hours"`
}

// Load reads configuration from environment variables, optionally layered
// over a YAML file named by THEFTWATCH_CONFIG. Environment variables win.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:       3000,
		BackendURL:     "ws://localhost:5000/socket",
		JournalDSN:     "theftwatch.db",
		JWTExpiryHours: 24,
		AdminUsername:  "admin",
	}

	if path := os.Getenv("THEFTWATCH_CONFIG"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnvAsIntOrDefault("HTTP_PORT", cfg.HTTPPort)
	cfg.BackendURL = getEnvOrDefault("BACKEND_URL", cfg.BackendURL)
	cfg.JournalDSN = getEnvOrDefault("JOURNAL_DSN", cfg.JournalDSN)
	cfg.AlertSoundPath = getEnvOrDefault("ALERT_SOUND_PATH", cfg.AlertSoundPath)
	cfg.SlackBotToken = getEnvOrDefault("SLACK_BOT_TOKEN", cfg.SlackBotToken)
	cfg.SlackChannel = getEnvOrDefault("SLACK_CHANNEL", cfg.SlackChannel)
	cfg.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnvOrDefault("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.JWTExpiryHours = getEnvAsIntOrDefault("JWT_EXPIRY_HOURS", cfg.JWTExpiryHours)

	// JWT secret: env var overrides, otherwise generated once and persisted
	// next to the journal so restarts keep sessions valid.
	secretPath := filepath.Join(filepath.Dir(cfg.JournalDSN), ".jwt_secret")
	cfg.JWTSecret = loadOrGenerateJWTSecret(secretPath)

	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadOrGenerateJWTSecret loads the JWT secret from file or generates a new one
func loadOrGenerateJWTSecret(secretPath string) string {
	if envSecret := os.Getenv("JWT_SECRET"); envSecret != "" {
		return envSecret
	}

	if data, err := os.ReadFile(secretPath); err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			return secret
		}
	}

	secret := generateSecureSecret(32) // 256 bits

	if err := os.MkdirAll(filepath.Dir(secretPath), 0755); err != nil {
		log.Printf("Warning: Could not create directory for JWT secret: %v", err)
		return secret
	}
	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		log.Printf("Warning: Could not save JWT secret to file: %v", err)
	}

	return secret
}

// generateSecureSecret generates a cryptographically secure random string
func generateSecureSecret(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		log.Printf("Warning: Could not generate secure random bytes: %v", err)
		return "fallback-insecure-secret-please-set-jwt-secret-env"
	}
	return hex.EncodeToString(b)
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
