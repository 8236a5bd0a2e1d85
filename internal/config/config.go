package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	TelegramToken  string
	AdminID        int64
	ChannelID      string // numeric chat ID or @channelusername
	LogLevel       string
	BroadcastDelay time.Duration
	WebhookURL     string // when set, the bot runs in webhook mode
	ListenAddr     string // HTTP listen address for the status/webhook server
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}

	adminIDStr := os.Getenv("ADMIN_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_ID environment variable is required")
	}
	adminID, err := strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_ID: %w", err)
	}
	if adminID == 0 {
		return nil, fmt.Errorf("ADMIN_ID must be non-zero")
	}

	channelID := os.Getenv("CHANNEL_ID")
	if channelID == "" {
		return nil, fmt.Errorf("CHANNEL_ID environment variable is required")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO" // default value
	}

	// Pacing delay between broadcast sends (default 100ms)
	broadcastDelay := 100 * time.Millisecond
	if delayStr := os.Getenv("BROADCAST_DELAY_MS"); delayStr != "" {
		delayMs, err := strconv.Atoi(delayStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BROADCAST_DELAY_MS '%s': must be a valid integer", delayStr)
		}
		if delayMs < 0 {
			return nil, fmt.Errorf("invalid BROADCAST_DELAY_MS '%d': must be non-negative", delayMs)
		}
		broadcastDelay = time.Duration(delayMs) * time.Millisecond
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080" // default value
	}

	return &Config{
		TelegramToken:  token,
		AdminID:        adminID,
		ChannelID:      channelID,
		LogLevel:       logLevel,
		BroadcastDelay: broadcastDelay,
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		ListenAddr:     listenAddr,
	}, nil
}
