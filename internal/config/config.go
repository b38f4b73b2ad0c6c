package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the tracker.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	// AnnounceChatID is the chat where reminders and class announcements go.
	AnnounceChatID int64
	// SubscriberTag is prepended to announcements so subscribers get pinged.
	SubscriberTag string
	SubjectsFile  string
	PauseAnnounce bool
	WebAddr       string
	WebEndpoint   string
	JWTSecret     string
	LogLevel      string
}

// Load reads configuration from environment variables, with an optional
// .env file for local runs.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SubscriberTag: strings.TrimSpace(os.Getenv("SUBSCRIBER_TAG")),
		SubjectsFile:  strings.TrimSpace(os.Getenv("SUBJECTS_FILE")),
		PauseAnnounce: parseBool(os.Getenv("PAUSE_ANNOUNCE")),
		WebAddr:       strings.TrimSpace(os.Getenv("WEB_ADDR")),
		WebEndpoint:   strings.TrimSpace(os.Getenv("WEB_ENDPOINT")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		LogLevel:      strings.ToUpper(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "hwtracker.db"
	}
	if cfg.SubjectsFile == "" {
		cfg.SubjectsFile = "subjects.json"
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	raw := strings.TrimSpace(os.Getenv("ANNOUNCE_CHAT_ID"))
	if raw == "" {
		return cfg, fmt.Errorf("ANNOUNCE_CHAT_ID is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("ANNOUNCE_CHAT_ID must be a chat id: %w", err)
	}
	cfg.AnnounceChatID = id

	if cfg.JWTSecret == "" && cfg.WebEndpoint != "" {
		return cfg, fmt.Errorf("JWT_SECRET is required when the web form is enabled")
	}

	return cfg, nil
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
