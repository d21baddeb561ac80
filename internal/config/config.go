package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string
	LogLevel   string

	// Shared Google OAuth credentials, used by the Gmail connector and the
	// Sheets catalog client.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleRefreshToken string

	SheetsSpreadsheetID string
	SheetsCatalogRange  string
	SheetsRateLimitRPS  int

	FuzzyMatchThreshold float64
	MaxMatchResults     int
	PatternsPath        string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),

		SheetsSpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsCatalogRange:  getEnv("SHEETS_CATALOG_RANGE", "Catalog!A2:H"),
		SheetsRateLimitRPS:  getEnvInt("SHEETS_RATE_LIMIT_RPS", 2),

		FuzzyMatchThreshold: getEnvFloat("FUZZY_MATCH_THRESHOLD", 0.7),
		MaxMatchResults:     getEnvInt("MAX_MATCH_RESULTS", 10),
		PatternsPath:        getEnv("PATTERNS_PATH", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "gmail"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 30),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
