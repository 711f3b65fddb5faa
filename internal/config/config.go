package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultCategories is the enumerated category set offered to users.
var DefaultCategories = []string{"Food", "Rent", "Utilities", "Entertainment", "Transportation", "Shopping", "Health", "Other"}

type Config struct {
	// Telegram
	TelegramToken         string
	TelegramMode          string // polling | webhook
	TelegramWebhookURL    string
	// Echoed by Telegram in X-Telegram-Bot-Api-Secret-Token on every webhook call.
	TelegramWebhookSecret string

	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	DataDirectory string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExpensesSheetName        string
	BudgetsSheetName         string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Notifier
	NotifyChatID int64

	// Bot behaviour
	CurrencySymbol     string
	Categories         []string
	EnableCharts       bool
	EnableBudgetAlerts bool
	WeekStart          string
	Timezone           string
	ListLimit          int

	// Logging
	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		TelegramToken:         getEnv("TELEGRAM_TOKEN", ""),
		TelegramMode:          strings.ToLower(getEnv("TELEGRAM_MODE", "polling")),
		TelegramWebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		Port: getEnv("PORT", "3000"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DataDirectory: getEnv("DATA_DIR", "data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/expenses.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		ExpensesSheetName:        getEnv("EXPENSES_SHEET_NAME", "ExpenseData"),
		BudgetsSheetName:         getEnv("BUDGETS_SHEET_NAME", "Budgets"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensebot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		NotifyChatID: getEnvInt64("NOTIFY_CHAT_ID", 0),

		CurrencySymbol:     getEnv("CURRENCY_SYMBOL", "$"),
		Categories:         getEnvList("EXPENSE_CATEGORIES", DefaultCategories),
		EnableCharts:       getEnvBool("ENABLE_CHARTS", true),
		EnableBudgetAlerts: getEnvBool("ENABLE_BUDGET_ALERTS", true),
		WeekStart:          strings.ToLower(getEnv("WEEK_START", "sunday")),
		Timezone:           getEnv("TIMEZONE", "Local"),
		ListLimit:          getEnvInt("LIST_LIMIT", 10),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	return cfg
}

// Location resolves Timezone, falling back to time.Local when it cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate checks the settings needed by the bot process.
func (c *Config) Validate() error {
	errors := c.validateCommon()

	if c.TelegramToken == "" {
		errors = append(errors, "TELEGRAM_TOKEN is required")
	}

	switch c.TelegramMode {
	case "polling":
	case "webhook":
		if c.TelegramWebhookURL == "" {
			errors = append(errors, "TELEGRAM_WEBHOOK_URL is required when TELEGRAM_MODE is webhook")
		} else if u, err := url.Parse(c.TelegramWebhookURL); err != nil || u.Scheme != "https" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid webhook URL '%s': must be an absolute https URL", c.TelegramWebhookURL))
		}
		if !validWebhookSecret(c.TelegramWebhookSecret) {
			errors = append(errors, "TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_MODE is webhook: 16-256 characters of A-Z, a-z, 0-9, _ or -")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid telegram mode '%s': must be one of [polling webhook]", c.TelegramMode))
	}

	// Validate data backend
	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
		}
		if c.ExpensesSheetName == "" || c.BudgetsSheetName == "" {
			errors = append(errors, "worksheet names cannot be empty when using sheets backend")
		} else if c.ExpensesSheetName == c.BudgetsSheetName {
			errors = append(errors, "EXPENSES_SHEET_NAME and BUDGETS_SHEET_NAME must differ")
		}

		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if !hasJSON && hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.CurrencySymbol == "" {
		errors = append(errors, "CURRENCY_SYMBOL cannot be empty")
	}
	if len(c.Categories) == 0 {
		errors = append(errors, "EXPENSE_CATEGORIES must list at least one category")
	}
	if c.ListLimit < 1 || c.ListLimit > 25 {
		errors = append(errors, fmt.Sprintf("invalid list limit %d: must be between 1 and 25", c.ListLimit))
	}

	return joinErrors(errors)
}

// ValidateNotifier checks the settings needed by the notifier process.
func (c *Config) ValidateNotifier() error {
	errors := c.validateCommon()

	if c.TelegramToken == "" {
		errors = append(errors, "TELEGRAM_TOKEN is required")
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the notifier")
	}
	if c.NotifyChatID == 0 {
		errors = append(errors, "NOTIFY_CHAT_ID is required by the notifier")
	}

	return joinErrors(errors)
}

func (c *Config) validateCommon() []string {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.WeekStart {
	case "sunday", "monday":
	default:
		errors = append(errors, fmt.Sprintf("invalid week start '%s': must be 'sunday' or 'monday'", c.WeekStart))
	}

	if c.Timezone != "" && !strings.EqualFold(c.Timezone, "local") {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
		}
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	return errors
}

// validWebhookSecret enforces Telegram's secret_token alphabet and a minimum
// length that resists guessing.
func validWebhookSecret(s string) bool {
	if len(s) < 16 || len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
