package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/storage"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Dialogue states owned by the contest creation wizard
const (
	StateCreationAwaitingText          = "creation_awaiting_text"
	StateCreationPreview               = "creation_preview"
	StateCreationAwaitingFieldName     = "creation_awaiting_field_name"
	StateCreationAwaitingFieldQuestion = "creation_awaiting_field_question"
)

// ContestCreationFSM drives the admin authoring wizard from /new_contest
// through text capture, optional registration fields, button setup and the
// publish/cancel decision.
type ContestCreationFSM struct {
	dialogs   *storage.DialogueStorage
	messenger Messenger
	registry  domain.ContestRegistry
	postSync  *PostSynchronizer
	logger    domain.Logger
}

// NewContestCreationFSM creates a new ContestCreationFSM
func NewContestCreationFSM(dialogs *storage.DialogueStorage, messenger Messenger, registry domain.ContestRegistry, postSync *PostSynchronizer, log domain.Logger) *ContestCreationFSM {
	return &ContestCreationFSM{
		dialogs:   dialogs,
		messenger: messenger,
		registry:  registry,
		postSync:  postSync,
		logger:    log,
	}
}

// Start begins the wizard for a fresh contest draft
func (f *ContestCreationFSM) Start(ctx context.Context, chatID int64, userID int64) {
	// Timestamp-ordered ids; the suffix keeps two starts in the same
	// millisecond from colliding.
	contestID := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]

	creation := &domain.CreationContext{ContestID: contestID}
	if err := f.dialogs.Set(ctx, userID, StateCreationAwaitingText, creation.ToMap()); err != nil {
		f.logger.Error("failed to start creation wizard", "user_id", userID, "error", err)
		return
	}

	f.logger.Info("state transition", "user_id", userID, "new_state", StateCreationAwaitingText, "contest_id", contestID)
	f.sendText(ctx, chatID, "Отправьте текст поста для конкурса:")
}

// HasSession reports whether the actor is inside the wizard
func (f *ContestCreationFSM) HasSession(ctx context.Context, userID int64) bool {
	state, _, err := f.dialogs.Get(ctx, userID)
	if err != nil {
		return false
	}
	switch state {
	case StateCreationAwaitingText, StateCreationPreview,
		StateCreationAwaitingFieldName, StateCreationAwaitingFieldQuestion:
		return true
	}
	return false
}

// AwaitsInput reports whether the wizard will consume the next free-text
// message. In the preview state text is ignored until a button is pressed.
func (f *ContestCreationFSM) AwaitsInput(ctx context.Context, userID int64) bool {
	state, _, err := f.dialogs.Get(ctx, userID)
	if err != nil {
		return false
	}
	switch state {
	case StateCreationAwaitingText, StateCreationAwaitingFieldName, StateCreationAwaitingFieldQuestion:
		return true
	}
	return false
}

// HandleMessage consumes a free-text wizard input according to the stored
// sub-step
func (f *ContestCreationFSM) HandleMessage(ctx context.Context, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	state, data, err := f.dialogs.Get(ctx, userID)
	if err != nil {
		f.logger.Error("failed to load creation session", "user_id", userID, "error", err)
		return
	}

	creation := &domain.CreationContext{}
	if err := creation.FromMap(data); err != nil {
		f.logger.Error("corrupted creation session", "user_id", userID, "error", err)
		_ = f.dialogs.Delete(ctx, userID)
		return
	}

	switch state {
	case StateCreationAwaitingText:
		f.handleTextInput(ctx, chatID, userID, creation, text)
	case StateCreationAwaitingFieldName:
		f.handleFieldNameInput(ctx, chatID, userID, creation, text)
	case StateCreationAwaitingFieldQuestion:
		f.handleFieldQuestionInput(ctx, chatID, userID, creation, text)
	}
}

func (f *ContestCreationFSM) handleTextInput(ctx context.Context, chatID, userID int64, creation *domain.CreationContext, text string) {
	if text == "" {
		f.sendText(ctx, chatID, "❌ Текст не может быть пустым. Попробуйте снова:")
		return
	}

	contest := &domain.Contest{
		ID:   creation.ContestID,
		Text: text,
		Buttons: []domain.Button{
			{Label: "Зарегистрироваться", Action: Action{Kind: ActionRegister, ContestID: creation.ContestID}.Encode()},
		},
		CreatedAt: time.Now(),
	}
	if err := f.registry.CreateContest(ctx, contest); err != nil {
		f.logger.Error("failed to create contest", "contest_id", creation.ContestID, "error", err)
		f.sendText(ctx, chatID, fmt.Sprintf("Ошибка: %v", err))
		return
	}

	if err := f.dialogs.Set(ctx, userID, StateCreationPreview, creation.ToMap()); err != nil {
		f.logger.Error("failed to store creation session", "user_id", userID, "error", err)
		return
	}

	f.logger.Info("contest draft created", "contest_id", creation.ContestID, "admin_id", userID)
	f.showPreview(ctx, chatID, 0, contest, true)
}

func (f *ContestCreationFSM) handleFieldNameInput(ctx context.Context, chatID, userID int64, creation *domain.CreationContext, name string) {
	if name == "" {
		f.sendText(ctx, chatID, "❌ Имя поля не может быть пустым. Попробуйте снова:")
		return
	}

	creation.PendingFieldName = name
	if err := f.dialogs.Set(ctx, userID, StateCreationAwaitingFieldQuestion, creation.ToMap()); err != nil {
		f.logger.Error("failed to store creation session", "user_id", userID, "error", err)
		return
	}

	f.sendText(ctx, chatID, "Введите вопрос для этого поля:")
}

func (f *ContestCreationFSM) handleFieldQuestionInput(ctx context.Context, chatID, userID int64, creation *domain.CreationContext, question string) {
	if question == "" {
		f.sendText(ctx, chatID, "❌ Вопрос не может быть пустым. Попробуйте снова:")
		return
	}

	field := domain.RegistrationField{Name: creation.PendingFieldName, Prompt: question}
	if err := f.registry.AddRegistrationField(ctx, creation.ContestID, field); err != nil {
		f.logger.Error("failed to add registration field", "contest_id", creation.ContestID, "error", err)
		f.sendText(ctx, chatID, fmt.Sprintf("Ошибка: %v", err))
		return
	}

	creation.PendingFieldName = ""
	if err := f.dialogs.Set(ctx, userID, StateCreationPreview, creation.ToMap()); err != nil {
		f.logger.Error("failed to store creation session", "user_id", userID, "error", err)
		return
	}

	f.logger.Info("registration field added", "contest_id", creation.ContestID, "field", field.Name)

	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Добавить еще поле", CallbackData: Action{Kind: ActionAddField}.Encode()},
				{Text: "Продолжить создание конкурса", CallbackData: Action{Kind: ActionContinueCreation}.Encode()},
			},
		},
	}
	_, err := f.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "Поле добавлено! Выберите действие:",
		ReplyMarkup: kb,
	})
	if err != nil {
		f.logger.Error("failed to send field-added menu", "chat_id", chatID, "error", err)
	}
}

// HandleAddRegistrationFields switches the wizard into field-name capture
func (f *ContestCreationFSM) HandleAddRegistrationFields(ctx context.Context, callback *models.CallbackQuery) {
	f.answer(ctx, callback.ID, "Добавление полей для регистрации")
	f.promptFieldName(ctx, callback, "Введите имя поля (например, \"email\" или \"phone\"):")
}

// HandleAddField asks for one more field after a completed pair
func (f *ContestCreationFSM) HandleAddField(ctx context.Context, callback *models.CallbackQuery) {
	f.answer(ctx, callback.ID, "Добавление нового поля")
	f.promptFieldName(ctx, callback, "Введите имя поля:")
}

func (f *ContestCreationFSM) promptFieldName(ctx context.Context, callback *models.CallbackQuery, prompt string) {
	userID := callback.From.ID

	creation, ok := f.loadCreation(ctx, userID)
	if !ok {
		return
	}
	if err := f.dialogs.Set(ctx, userID, StateCreationAwaitingFieldName, creation.ToMap()); err != nil {
		f.logger.Error("failed to store creation session", "user_id", userID, "error", err)
		return
	}
	f.sendText(ctx, callbackChatID(callback), prompt)
}

// HandleContinueCreation returns to the preview without the fields entry
func (f *ContestCreationFSM) HandleContinueCreation(ctx context.Context, callback *models.CallbackQuery) {
	f.answer(ctx, callback.ID, "Продолжение создания конкурса")

	creation, ok := f.loadCreation(ctx, callback.From.ID)
	if !ok {
		return
	}
	contest, err := f.registry.GetContest(ctx, creation.ContestID)
	if err != nil {
		f.sendText(ctx, callbackChatID(callback), "Конкурс не найден.")
		return
	}
	f.showPreview(ctx, callbackChatID(callback), 0, contest, false)
}

// HandleButtonsDone re-renders the full preview when the button editor is
// closed inside the wizard
func (f *ContestCreationFSM) HandleButtonsDone(ctx context.Context, callback *models.CallbackQuery) {
	f.answer(ctx, callback.ID, "Настройка кнопок завершена")

	creation, ok := f.loadCreation(ctx, callback.From.ID)
	if !ok {
		return
	}
	contest, err := f.registry.GetContest(ctx, creation.ContestID)
	if err != nil {
		f.sendText(ctx, callbackChatID(callback), "Конкурс не найден.")
		return
	}
	f.showPreview(ctx, callbackChatID(callback), callbackMessageID(callback), contest, true)
}

// HandlePublish posts the contest to the channel and closes the wizard.
// A failed publish keeps the session alive so the admin can retry.
func (f *ContestCreationFSM) HandlePublish(ctx context.Context, callback *models.CallbackQuery, action Action) {
	userID := callback.From.ID

	if _, err := f.postSync.Publish(ctx, action.ContestID); err != nil {
		f.logger.Error("failed to publish contest", "contest_id", action.ContestID, "error", err)
		f.answer(ctx, callback.ID, "Ошибка при публикации.")
		f.sendText(ctx, callbackChatID(callback), fmt.Sprintf("Ошибка: %v", err))
		return
	}

	if err := f.dialogs.Delete(ctx, userID); err != nil && err != storage.ErrSessionNotFound {
		f.logger.Error("failed to clear creation session", "user_id", userID, "error", err)
	}

	f.answer(ctx, callback.ID, "Конкурс опубликован и закреплен!")
	f.editText(ctx, callback, "✅ Конкурс успешно опубликован и закреплен в канале.")
	f.logger.Info("contest published", "contest_id", action.ContestID, "admin_id", userID)
}

// HandleCancel abandons the wizard. A draft already committed to the
// registry stays there unpublished.
func (f *ContestCreationFSM) HandleCancel(ctx context.Context, callback *models.CallbackQuery) {
	userID := callback.From.ID

	if err := f.dialogs.Delete(ctx, userID); err != nil && err != storage.ErrSessionNotFound {
		f.logger.Error("failed to clear creation session", "user_id", userID, "error", err)
	}

	f.answer(ctx, callback.ID, "Создание конкурса отменено")
	f.editText(ctx, callback, "❌ Создание конкурса отменено.")
	f.logger.Info("contest creation cancelled", "admin_id", userID)
}

// ContestID returns the draft ID of the actor's wizard session
func (f *ContestCreationFSM) ContestID(ctx context.Context, userID int64) (string, bool) {
	creation, ok := f.loadCreation(ctx, userID)
	if !ok {
		return "", false
	}
	return creation.ContestID, true
}

func (f *ContestCreationFSM) loadCreation(ctx context.Context, userID int64) (*domain.CreationContext, bool) {
	_, data, err := f.dialogs.Get(ctx, userID)
	if err != nil {
		return nil, false
	}
	creation := &domain.CreationContext{}
	if err := creation.FromMap(data); err != nil {
		f.logger.Error("corrupted creation session", "user_id", userID, "error", err)
		return nil, false
	}
	return creation, true
}

// showPreview renders the draft with its decision keyboard. The full form
// offers the registration-fields entry, the short form omits it.
func (f *ContestCreationFSM) showPreview(ctx context.Context, chatID int64, messageID int, contest *domain.Contest, full bool) {
	var rows [][]models.InlineKeyboardButton
	if full {
		rows = [][]models.InlineKeyboardButton{
			{
				{Text: "Добавить поля для регистрации", CallbackData: Action{Kind: ActionAddRegistrationFields}.Encode()},
				{Text: "Настроить кнопки", CallbackData: Action{Kind: ActionSetupButtons}.Encode()},
			},
			{
				{Text: "Опубликовать", CallbackData: Action{Kind: ActionPublish, ContestID: contest.ID}.Encode()},
				{Text: "Отменить", CallbackData: Action{Kind: ActionCancelCreation}.Encode()},
			},
		}
	} else {
		rows = [][]models.InlineKeyboardButton{
			{
				{Text: "Настроить кнопки", CallbackData: Action{Kind: ActionSetupButtons}.Encode()},
				{Text: "Опубликовать", CallbackData: Action{Kind: ActionPublish, ContestID: contest.ID}.Encode()},
			},
			{
				{Text: "Отменить", CallbackData: Action{Kind: ActionCancelCreation}.Encode()},
			},
		}
	}

	text := "Предпросмотр поста:\n\n" + contest.Text
	kb := &models.InlineKeyboardMarkup{InlineKeyboard: rows}

	var err error
	if messageID != 0 {
		_, err = f.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: kb,
		})
	} else {
		_, err = f.messenger.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        text,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: kb,
		})
	}
	if err != nil {
		f.logger.Error("failed to show preview", "contest_id", contest.ID, "error", err)
	}
}

func (f *ContestCreationFSM) editText(ctx context.Context, callback *models.CallbackQuery, text string) {
	messageID := callbackMessageID(callback)
	if messageID == 0 {
		f.sendText(ctx, callbackChatID(callback), text)
		return
	}
	_, err := f.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    callbackChatID(callback),
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		f.logger.Error("failed to edit message", "error", err)
	}
}

func (f *ContestCreationFSM) answer(ctx context.Context, callbackID string, text string) {
	_, err := f.messenger.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		f.logger.Error("failed to answer callback", "error", err)
	}
}

func (f *ContestCreationFSM) sendText(ctx context.Context, chatID int64, text string) {
	_, err := f.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		f.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
