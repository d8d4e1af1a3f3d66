package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultModel          = "gemini-1.5-flash-latest"
	defaultSearchURL      = "https://html.duckduckgo.com/html/"
	defaultDownloadDir    = "downloads"
	defaultRetentionHours = 24
	defaultHTTPTimeoutSec = 30
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken     string
	GeminiAPIKey      string
	DatabaseURL       string
	GeminiModel       string
	GeminiVisionModel string
	SearchURL         string
	DownloadDir       string
	DownloadRetention time.Duration
	HTTPTimeout       time.Duration
}

// Error reports every required setting that is missing or malformed.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid %s", strings.Join(e.Invalid, ", ")))
	}
	return "config: " + strings.Join(parts, "; ")
}

// Load reads a .env file when present and then configuration from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[warn] read .env: %v", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary key lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		TelegramToken:     get("TELEGRAM_TOKEN"),
		GeminiAPIKey:      get("GEMINI_API_KEY"),
		DatabaseURL:       get("DATABASE_URL"),
		GeminiModel:       get("GEMINI_MODEL"),
		GeminiVisionModel: get("GEMINI_VISION_MODEL"),
		SearchURL:         get("SEARCH_URL"),
		DownloadDir:       get("DOWNLOAD_DIR"),
	}

	cfgErr := &Error{}
	for key, value := range map[string]string{
		"TELEGRAM_TOKEN": cfg.TelegramToken,
		"GEMINI_API_KEY": cfg.GeminiAPIKey,
		"DATABASE_URL":   cfg.DatabaseURL,
	} {
		if value == "" {
			cfgErr.Missing = append(cfgErr.Missing, key)
		}
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = defaultModel
	}
	if cfg.GeminiVisionModel == "" {
		cfg.GeminiVisionModel = cfg.GeminiModel
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaultSearchURL
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir
	}

	hours, ok := parsePositive(get("DOWNLOAD_RETENTION_HOURS"), defaultRetentionHours)
	if !ok {
		cfgErr.Invalid = append(cfgErr.Invalid, "DOWNLOAD_RETENTION_HOURS")
	}
	cfg.DownloadRetention = time.Duration(hours) * time.Hour

	seconds, ok := parsePositive(get("HTTP_TIMEOUT_SECONDS"), defaultHTTPTimeoutSec)
	if !ok {
		cfgErr.Invalid = append(cfgErr.Invalid, "HTTP_TIMEOUT_SECONDS")
	}
	cfg.HTTPTimeout = time.Duration(seconds) * time.Second

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		slices.Sort(cfgErr.Missing)
		return cfg, cfgErr
	}
	return cfg, nil
}

func parsePositive(raw string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback, false
	}
	return n, true
}
