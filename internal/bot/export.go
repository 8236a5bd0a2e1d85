package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ad/telegram-contest-bot/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ParticipantExporter sends the registration roster of a contest to the
// admin as a document in text or CSV form.
type ParticipantExporter struct {
	messenger Messenger
	registry  domain.ContestRegistry
	logger    domain.Logger
}

// NewParticipantExporter creates a new ParticipantExporter
func NewParticipantExporter(messenger Messenger, registry domain.ContestRegistry, log domain.Logger) *ParticipantExporter {
	return &ParticipantExporter{
		messenger: messenger,
		registry:  registry,
		logger:    log,
	}
}

// SendText exports the roster as a plain-text document
func (e *ParticipantExporter) SendText(ctx context.Context, callback *models.CallbackQuery, contestID string) {
	contest, err := e.registry.GetContest(ctx, contestID)
	if err != nil {
		e.answer(ctx, callback.ID, "Конкурс не найден")
		return
	}

	e.answer(ctx, callback.ID, "Экспорт в текстовый файл")
	e.sendDocument(ctx, callbackChatID(callback), fmt.Sprintf("registrations_%s.txt", contestID), domain.ExportText(contest))
}

// SendCSV exports the roster as a CSV document
func (e *ParticipantExporter) SendCSV(ctx context.Context, callback *models.CallbackQuery, contestID string) {
	contest, err := e.registry.GetContest(ctx, contestID)
	if err != nil {
		e.answer(ctx, callback.ID, "Конкурс не найден")
		return
	}

	payload, err := domain.ExportCSV(contest)
	if err != nil {
		e.logger.Error("failed to build csv export", "contest_id", contestID, "error", err)
		e.answer(ctx, callback.ID, "Ошибка экспорта")
		return
	}

	e.answer(ctx, callback.ID, "Экспорт в CSV")
	e.sendDocument(ctx, callbackChatID(callback), fmt.Sprintf("registrations_%s.csv", contestID), payload)
}

func (e *ParticipantExporter) sendDocument(ctx context.Context, chatID int64, filename string, payload []byte) {
	_, err := e.messenger.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(payload),
		},
	})
	if err != nil {
		e.logger.Error("failed to send export document", "chat_id", chatID, "filename", filename, "error", err)
		return
	}
	e.logger.Info("roster exported", "filename", filename, "bytes", len(payload))
}

func (e *ParticipantExporter) answer(ctx context.Context, callbackID string, text string) {
	_, err := e.messenger.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		e.logger.Error("failed to answer callback", "error", err)
	}
}
