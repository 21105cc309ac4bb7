// Package config layers file and environment configuration: Settings.toml
// provides the base values, environment variables override them.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const defaultSettingsPath = "Settings.toml"

type Config struct {
	APIPort            int    `toml:"api_port"`
	Network            string `toml:"network"`
	EngineURL          string `toml:"engine_url"`
	DbURL              string `toml:"db_url"`
	KafkaBroker        string `toml:"kafka_broker"`
	KafkaTopic         string `toml:"kafka_topic"`
	RecoveryIntervalMs int    `toml:"recovery_interval_ms"`
	PublishIntervalMs  int    `toml:"publish_interval_ms"`
}

// NewConfig loads Settings.toml (path overridable via SETTINGS_PATH), then
// applies environment overrides. Missing required values are fatal.
func NewConfig() *Config {
	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            8080,
		Network:            "testnet",
		RecoveryIntervalMs: 15000,
		PublishIntervalMs:  3000,
	}

	settingsPath := os.Getenv("SETTINGS_PATH")
	if settingsPath == "" {
		settingsPath = defaultSettingsPath
	}
	if _, err := os.Stat(settingsPath); err == nil {
		if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
			log.Fatalf("Failed to parse %s: %v", settingsPath, err)
		}
	}

	cfg.APIPort = getEnvInt("API_PORT", cfg.APIPort)
	cfg.Network = getEnvOr("NETWORK", cfg.Network)
	cfg.EngineURL = getEnvOr("ENGINE_URL", cfg.EngineURL)
	cfg.DbURL = getEnvOr("DB_URL", cfg.DbURL)
	cfg.KafkaBroker = getEnvOr("KAFKA_BROKER", cfg.KafkaBroker)
	cfg.KafkaTopic = getEnvOr("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.RecoveryIntervalMs = getEnvInt("RECOVERY_INTERVAL_MS", cfg.RecoveryIntervalMs)
	cfg.PublishIntervalMs = getEnvInt("PUBLISH_INTERVAL_MS", cfg.PublishIntervalMs)

	requireValue("engine_url / ENGINE_URL", cfg.EngineURL)
	requireValue("db_url / DB_URL", cfg.DbURL)
	requireValue("kafka_broker / KAFKA_BROKER", cfg.KafkaBroker)
	requireValue("kafka_topic / KAFKA_TOPIC", cfg.KafkaTopic)
	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		log.Fatalf("network must be mainnet or testnet, got %q", cfg.Network)
	}

	return cfg
}

// RecoveryInterval is the reconciliation poller period.
func (c *Config) RecoveryInterval() time.Duration {
	return time.Duration(c.RecoveryIntervalMs) * time.Millisecond
}

// PublishInterval is the outbox publisher period.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.PublishIntervalMs) * time.Millisecond
}

func requireValue(name, value string) {
	if value == "" {
		log.Fatalf("configuration value %s not set", name)
	}
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
