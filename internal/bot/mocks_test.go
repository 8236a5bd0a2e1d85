package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MockMessenger records outbound API calls for assertions. SendMessage
// records the attempt even when a send error is configured, so broadcast
// tests can verify that failures do not abort the loop.
type MockMessenger struct {
	sent       []*bot.SendMessageParams
	edited     []*bot.EditMessageTextParams
	pinned     []*bot.PinChatMessageParams
	answered   []*bot.AnswerCallbackQueryParams
	documents  []*bot.SendDocumentParams
	sendErrors map[int64]error
	nextID     int
}

func NewMockMessenger() *MockMessenger {
	return &MockMessenger{
		sendErrors: make(map[int64]error),
	}
}

func (m *MockMessenger) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.sent = append(m.sent, params)
	if chatID, ok := params.ChatID.(int64); ok {
		if err := m.sendErrors[chatID]; err != nil {
			return nil, err
		}
	}
	m.nextID++
	return &models.Message{ID: m.nextID}, nil
}

func (m *MockMessenger) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	m.edited = append(m.edited, params)
	return &models.Message{}, nil
}

func (m *MockMessenger) PinChatMessage(ctx context.Context, params *bot.PinChatMessageParams) (bool, error) {
	m.pinned = append(m.pinned, params)
	return true, nil
}

func (m *MockMessenger) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	m.answered = append(m.answered, params)
	return true, nil
}

func (m *MockMessenger) SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.documents = append(m.documents, params)
	m.nextID++
	return &models.Message{ID: m.nextID}, nil
}

// SetSendError makes SendMessage fail for a given chat
func (m *MockMessenger) SetSendError(chatID int64, err error) {
	m.sendErrors[chatID] = err
}

// SentTexts returns the text of every SendMessage attempt in order
func (m *MockMessenger) SentTexts() []string {
	texts := make([]string, 0, len(m.sent))
	for _, p := range m.sent {
		texts = append(texts, p.Text)
	}
	return texts
}

// LastAnswered returns the most recent callback answer, or nil
func (m *MockMessenger) LastAnswered() *bot.AnswerCallbackQueryParams {
	if len(m.answered) == 0 {
		return nil
	}
	return m.answered[len(m.answered)-1]
}

// textMessage builds an incoming free-text update
func textMessage(userID, chatID int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{ID: userID},
			Chat: models.Chat{ID: chatID},
			Text: text,
		},
	}
}

// callbackUpdate builds an incoming callback query update
func callbackUpdate(userID, chatID int64, messageID int, data string) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-test",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{
					ID:   messageID,
					Chat: models.Chat{ID: chatID},
				},
			},
		},
	}
}

func containsText(texts []string, want string) bool {
	for _, t := range texts {
		if t == want {
			return true
		}
	}
	return false
}
