package domain

import (
	"fmt"
	"strings"
)

// DeepLinkService handles generation and parsing of Telegram deep-link URLs
// that route a user from a channel post into a registration conversation
type DeepLinkService struct {
	botUsername string
}

// NewDeepLinkService creates a new DeepLinkService with the specified bot username
func NewDeepLinkService(botUsername string) *DeepLinkService {
	return &DeepLinkService{
		botUsername: botUsername,
	}
}

// GenerateContestLink generates a deep-link URL for registering to a contest
// Format: https://t.me/{bot_username}?start=contest_{contestID}
func (s *DeepLinkService) GenerateContestLink(contestID string) string {
	return fmt.Sprintf("https://t.me/%s?start=contest_%s", s.botUsername, contestID)
}

// ParseContestIDFromStart parses a contest ID from a /start command parameter
// Expected format: "contest_{contestID}"
func (s *DeepLinkService) ParseContestIDFromStart(startParam string) (string, error) {
	if !strings.HasPrefix(startParam, "contest_") {
		return "", fmt.Errorf("invalid start parameter format: expected 'contest_<id>', got '%s'", startParam)
	}

	contestID := strings.TrimPrefix(startParam, "contest_")
	if contestID == "" {
		return "", fmt.Errorf("invalid start parameter: missing contest ID")
	}

	return contestID, nil
}
