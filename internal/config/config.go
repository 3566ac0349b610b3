// Package config reads runtime settings from the environment.
//
// Outside production a .env file in the working directory is loaded first;
// variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/notifier"
)

// Storage backends
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageGist     = "gist"
	StoragePostgres = "postgres"
)

const (
	DefaultDataDir = "~/.campushub"
	DefaultPort    = "8080"
)

// Config holds all configuration for the application
type Config struct {
	Environment string

	Storage       string
	DataDir       string
	GistID        string
	GitHubToken   string
	DatabaseURL   string
	EncryptionKey string

	RabbitMQURL  string
	Exchange     string
	Twitter      notifier.TwitterCredentials
	NotifyDryRun bool

	TelegramBotToken string
	TelegramChatID   string

	LogLevel logger.Level
	Port     string
	Timezone string
}

// Load reads the configuration. files default to ".env"; a missing file is
// not an error.
func Load(files ...string) (*Config, error) {
	env := os.Getenv("CAMPUSHUB_ENV")
	if env == "" {
		env = "development"
	}

	if env != "production" {
		if err := godotenv.Load(files...); err != nil {
			logger.Debug(".env file not loaded", logger.Fields{"error": err.Error()})
		}
	}

	dryRun, err := parseBool(os.Getenv("CAMPUSHUB_NOTIFY_DRY_RUN"))
	if err != nil {
		return nil, fmt.Errorf("CAMPUSHUB_NOTIFY_DRY_RUN: %w", err)
	}

	cfg := &Config{
		Environment:   env,
		Storage:       strings.ToLower(getenv("CAMPUSHUB_STORAGE", StorageFile)),
		DataDir:       getenv("CAMPUSHUB_DATA_DIR", DefaultDataDir),
		GistID:        os.Getenv("CAMPUSHUB_GIST_ID"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		EncryptionKey: os.Getenv("CAMPUSHUB_ENCRYPTION_KEY"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		Exchange:      getenv("CAMPUSHUB_EXCHANGE", notifier.DefaultExchange),
		Twitter: notifier.TwitterCredentials{
			APIKey:       os.Getenv("TWITTER_API_KEY"),
			APISecret:    os.Getenv("TWITTER_API_SECRET"),
			AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
			AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
		},
		NotifyDryRun: dryRun,

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		LogLevel: logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		Port:     getenv("PORT", DefaultPort),
		Timezone: os.Getenv("CAMPUSHUB_TIMEZONE"),
	}

	return cfg, nil
}

// Validate checks that the selected storage backend has what it needs
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageMemory:
	case StorageGist:
		if c.GistID == "" || c.GitHubToken == "" {
			return errors.New("gist storage requires CAMPUSHUB_GIST_ID and GITHUB_TOKEN")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("postgres storage requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown storage %q (want file, memory, gist or postgres)", c.Storage)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the zone event times are interpreted in.
// An empty Timezone means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CAMPUSHUB_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
