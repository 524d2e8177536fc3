package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	BotToken     string
	AdminUserIDs []int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        string

	// OpenAI configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Storage configuration
	DatabasePath string
	UseMockDB    bool

	// File storage configuration
	FilesDir    string
	MaxFileSize int64 // bytes

	// Quiz configuration
	MaxQuizQuestions int
	QuizTimeLimit    int // seconds per question

	// Memory configuration
	MaxHistoryMessages int
	ContextWindowSize  int

	// OCR configuration
	TesseractLangs string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.BotToken = os.Getenv("BOT_TOKEN")
	if config.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	// OpenAI API key (required)
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if config.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	config.OpenAIModel = os.Getenv("OPENAI_MODEL")
	if config.OpenAIModel == "" {
		config.OpenAIModel = "gpt-3.5-turbo"
	}

	// Admin user IDs (optional, comma-separated)
	if adminIDs := os.Getenv("ADMIN_USER_IDS"); adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID in ADMIN_USER_IDS: %s", idStr)
			}
			config.AdminUserIDs = append(config.AdminUserIDs, id)
		}
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	config.DatabasePath = os.Getenv("DATABASE_PATH")
	if config.DatabasePath == "" && !config.UseMockDB {
		config.DatabasePath = "database/studybot.db"
	}

	config.FilesDir = os.Getenv("FILES_DIR")
	if config.FilesDir == "" {
		config.FilesDir = "files"
	}

	// MAX_FILE_SIZE is given in megabytes
	maxFileMB, err := intFromEnv("MAX_FILE_SIZE", 50)
	if err != nil {
		return nil, err
	}
	config.MaxFileSize = int64(maxFileMB) * 1024 * 1024

	config.MaxQuizQuestions, err = intFromEnv("MAX_QUIZ_QUESTIONS", 10)
	if err != nil {
		return nil, err
	}

	config.QuizTimeLimit, err = intFromEnv("QUIZ_TIME_LIMIT", 300)
	if err != nil {
		return nil, err
	}

	config.MaxHistoryMessages, err = intFromEnv("MAX_HISTORY_MESSAGES", 100)
	if err != nil {
		return nil, err
	}

	config.ContextWindowSize, err = intFromEnv("CONTEXT_WINDOW_SIZE", 10)
	if err != nil {
		return nil, err
	}

	config.TesseractLangs = os.Getenv("TESSERACT_LANGS")
	if config.TesseractLangs == "" {
		config.TesseractLangs = "eng+hin"
	}

	return config, nil
}

// IsAdmin reports whether the user is listed in ADMIN_USER_IDS
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
