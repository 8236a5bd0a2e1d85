package bot

import (
	"context"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/metrics"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegistrationFSM drives a participant's registration dialogue. The cursor
// lives inside the Participant entity, so the flow survives on registry
// state alone: the next free-text message from an actor with a live cursor
// belongs here regardless of content.
type RegistrationFSM struct {
	messenger Messenger
	registry  domain.ContestRegistry
	postSync  *PostSynchronizer
	logger    domain.Logger
}

// NewRegistrationFSM creates a new RegistrationFSM
func NewRegistrationFSM(messenger Messenger, registry domain.ContestRegistry, postSync *PostSynchronizer, log domain.Logger) *RegistrationFSM {
	return &RegistrationFSM{
		messenger: messenger,
		registry:  registry,
		postSync:  postSync,
		logger:    log,
	}
}

// Start registers the actor for a contest reached through a deep link and,
// when the contest has registration fields, opens the question form
func (f *RegistrationFSM) Start(ctx context.Context, chatID int64, userID int64, displayName string, contestID string) {
	result, err := f.registry.RegisterParticipant(ctx, contestID, userID, displayName)
	if err != nil {
		f.logger.Error("registration failed", "contest_id", contestID, "user_id", userID, "error", err)
		return
	}

	switch result {
	case domain.RegistrationContestNotFound:
		f.sendText(ctx, chatID, "Конкурс не найден или уже завершен.")

	case domain.RegistrationAlreadyRegistered:
		f.sendText(ctx, chatID, "Вы уже зарегистрированы на этот конкурс.")

	case domain.RegistrationCreated:
		metrics.RegistrationsTotal.Inc()
		f.sendText(ctx, chatID, "✅ Вы успешно зарегистрировались на конкурс!")

		first, started, err := f.registry.BeginRegistrationForm(ctx, contestID, userID)
		if err != nil {
			f.logger.Error("failed to open registration form", "contest_id", contestID, "user_id", userID, "error", err)
			return
		}
		if started {
			f.logger.Info("registration form opened", "contest_id", contestID, "user_id", userID)
			f.sendText(ctx, chatID, "Пожалуйста, заполните следующую информацию:")
			f.sendText(ctx, chatID, first.Prompt)
		}

		f.postSync.Sync(ctx, contestID)
	}
}

// HasSession reports whether the actor has a live registration cursor
func (f *RegistrationFSM) HasSession(ctx context.Context, userID int64) bool {
	_, ok, err := f.registry.ActiveForm(ctx, userID)
	if err != nil {
		f.logger.Error("failed to check active form", "user_id", userID, "error", err)
		return false
	}
	return ok
}

// HandleMessage consumes one free-text answer for the actor's open form
func (f *RegistrationFSM) HandleMessage(ctx context.Context, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	contestID, ok, err := f.registry.ActiveForm(ctx, userID)
	if err != nil || !ok {
		return
	}

	next, done, err := f.registry.AdvanceRegistrationForm(ctx, contestID, userID, update.Message.Text)
	if err != nil {
		f.logger.Error("failed to record form answer", "contest_id", contestID, "user_id", userID, "error", err)
		return
	}

	if done {
		f.logger.Info("registration form completed", "contest_id", contestID, "user_id", userID)
		f.sendText(ctx, chatID, "Спасибо! Ваша регистрация завершена.")
		f.postSync.Sync(ctx, contestID)
		return
	}

	f.sendText(ctx, chatID, next.Prompt)
}

func (f *RegistrationFSM) sendText(ctx context.Context, chatID int64, text string) {
	_, err := f.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		f.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
