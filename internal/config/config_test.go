package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := FromLookup(lookupFrom(map[string]string{
		"TELEGRAM_TOKEN": " tg-token ",
		"GEMINI_API_KEY": "gemini-key",
		"DATABASE_URL":   "bot.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "tg-token", cfg.TelegramToken)
	assert.Equal(t, defaultModel, cfg.GeminiModel)
	assert.Equal(t, defaultModel, cfg.GeminiVisionModel)
	assert.Equal(t, defaultSearchURL, cfg.SearchURL)
	assert.Equal(t, defaultDownloadDir, cfg.DownloadDir)
	assert.Equal(t, 24*time.Hour, cfg.DownloadRetention)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestFromLookupMissingCredentialsAreFatal(t *testing.T) {
	t.Parallel()

	_, err := FromLookup(lookupFrom(map[string]string{
		"TELEGRAM_TOKEN": "tg-token",
	}))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"DATABASE_URL", "GEMINI_API_KEY"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestFromLookupInvalidNumbers(t *testing.T) {
	t.Parallel()

	_, err := FromLookup(lookupFrom(map[string]string{
		"TELEGRAM_TOKEN":           "tg-token",
		"GEMINI_API_KEY":           "gemini-key",
		"DATABASE_URL":             "bot.db",
		"DOWNLOAD_RETENTION_HOURS": "-3",
		"HTTP_TIMEOUT_SECONDS":     "abc",
	}))

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, cfgErr.Missing)
	assert.Equal(t, []string{"DOWNLOAD_RETENTION_HOURS", "HTTP_TIMEOUT_SECONDS"}, cfgErr.Invalid)
}

func TestFromLookupOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := FromLookup(lookupFrom(map[string]string{
		"TELEGRAM_TOKEN":           "tg-token",
		"GEMINI_API_KEY":           "gemini-key",
		"DATABASE_URL":             "bot.db",
		"GEMINI_MODEL":             "gemini-2.0-flash",
		"GEMINI_VISION_MODEL":      "gemini-2.0-pro",
		"DOWNLOAD_RETENTION_HOURS": "2",
	}))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, "gemini-2.0-pro", cfg.GeminiVisionModel)
	assert.Equal(t, 2*time.Hour, cfg.DownloadRetention)
}
