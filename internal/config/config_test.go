package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/campushub/internal/logger"
)

var envKeys = []string{
	"CAMPUSHUB_ENV", "CAMPUSHUB_STORAGE", "CAMPUSHUB_DATA_DIR", "CAMPUSHUB_GIST_ID",
	"GITHUB_TOKEN", "DATABASE_URL", "CAMPUSHUB_ENCRYPTION_KEY", "RABBITMQ_URL",
	"CAMPUSHUB_EXCHANGE", "CAMPUSHUB_NOTIFY_DRY_RUN", "LOG_LEVEL", "PORT",
	"CAMPUSHUB_TIMEZONE", "TWITTER_API_KEY", "TWITTER_API_SECRET",
	"TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_SECRET", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
}

// clearEnv blanks every variable Load reads and restores them after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, "campushub.events", cfg.Exchange)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.NotifyDryRun)
	assert.False(t, cfg.Twitter.Complete())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "CAMPUSHUB_STORAGE=Postgres\n" +
		"DATABASE_URL=postgres://localhost/campus\n" +
		"LOG_LEVEL=debug\n" +
		"PORT=9090\n" +
		"CAMPUSHUB_NOTIFY_DRY_RUN=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "postgres://localhost/campus", cfg.DatabaseURL)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, ":7070", cfg.Addr(), "environment wins over .env")
	assert.True(t, cfg.NotifyDryRun)
	assert.NoError(t, cfg.Validate())
}

func TestLoadSkipsEnvFileInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAMPUSHUB_ENV", "production")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CAMPUSHUB_STORAGE=memory\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, StorageFile, cfg.Storage)
}

func TestLoadRejectsBadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAMPUSHUB_NOTIFY_DRY_RUN", "sometimes")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "file", cfg: Config{Storage: StorageFile}},
		{name: "memory", cfg: Config{Storage: StorageMemory}},
		{name: "gist complete", cfg: Config{Storage: StorageGist, GistID: "abc", GitHubToken: "tok"}},
		{name: "gist without token", cfg: Config{Storage: StorageGist, GistID: "abc"}, wantErr: true},
		{name: "postgres without dsn", cfg: Config{Storage: StoragePostgres}, wantErr: true},
		{name: "unknown storage", cfg: Config{Storage: "s3"}, wantErr: true},
		{name: "bad timezone", cfg: Config{Storage: StorageFile, Timezone: "Mars/Olympus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{Timezone: "UTC"}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = ""
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", (&Config{Port: "8080"}).Addr())
	assert.Equal(t, "127.0.0.1:9000", (&Config{Port: "127.0.0.1:9000"}).Addr())
}
