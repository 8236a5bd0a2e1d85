package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/storage"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Dialogue state owned by the button editor
const (
	StateButtonEditValue = "button_edit_value"
)

// ButtonEditorFSM is the nested add/remove/edit menu for a contest's action
// buttons. It serves both the creation wizard (against the draft contest)
// and /edit_buttons or the admin panel (against a published one); every
// mutation of a published contest triggers post synchronization.
//
// The editor must own a DialogueStorage separate from the wizard's: its
// value-edit marker would otherwise overwrite a live wizard session when
// buttons are edited from inside the wizard.
type ButtonEditorFSM struct {
	dialogs   *storage.DialogueStorage
	messenger Messenger
	registry  domain.ContestRegistry
	postSync  *PostSynchronizer
	logger    domain.Logger
}

// NewButtonEditorFSM creates a new ButtonEditorFSM
func NewButtonEditorFSM(dialogs *storage.DialogueStorage, messenger Messenger, registry domain.ContestRegistry, postSync *PostSynchronizer, log domain.Logger) *ButtonEditorFSM {
	return &ButtonEditorFSM{
		dialogs:   dialogs,
		messenger: messenger,
		registry:  registry,
		postSync:  postSync,
		logger:    log,
	}
}

// HasSession reports whether the actor owes the editor a button value
func (e *ButtonEditorFSM) HasSession(ctx context.Context, userID int64) bool {
	state, _, err := e.dialogs.Get(ctx, userID)
	if err != nil {
		return false
	}
	return state == StateButtonEditValue
}

// ShowMenu renders the button list with the action keyboard. When
// messageID is non-zero the existing menu message is edited in place.
func (e *ButtonEditorFSM) ShowMenu(ctx context.Context, chatID int64, contestID string, messageID int, header string) {
	contest, err := e.registry.GetContest(ctx, contestID)
	if err != nil {
		e.sendText(ctx, chatID, "Конкурс не найден.")
		return
	}

	var sb strings.Builder
	if header != "" {
		sb.WriteString(header)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Текущие кнопки:\n")
	sb.WriteString(renderButtonList(contest.Buttons))
	sb.WriteString("\nВыберите действие:")

	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Добавить кнопку", CallbackData: Action{Kind: ActionAddButton, ContestID: contestID}.Encode()},
				{Text: "Удалить кнопку", CallbackData: Action{Kind: ActionRemoveButtonMenu, ContestID: contestID}.Encode()},
			},
			{
				{Text: "Изменить текст", CallbackData: Action{Kind: ActionEditLabelMenu, ContestID: contestID}.Encode()},
				{Text: "Изменить callback", CallbackData: Action{Kind: ActionEditActionMenu, ContestID: contestID}.Encode()},
			},
			{
				{Text: "Готово", CallbackData: Action{Kind: ActionButtonsDone}.Encode()},
			},
		},
	}

	if messageID != 0 {
		_, err = e.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        sb.String(),
			ReplyMarkup: kb,
		})
	} else {
		_, err = e.messenger.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        sb.String(),
			ReplyMarkup: kb,
		})
	}
	if err != nil {
		e.logger.Error("failed to show button menu", "contest_id", contestID, "error", err)
	}
}

// HandleAddButton appends a synthesized button with a generated action token
func (e *ButtonEditorFSM) HandleAddButton(ctx context.Context, callback *models.CallbackQuery, action Action) {
	e.answer(ctx, callback.ID, "Добавление кнопки")

	token := "custom_" + uuid.NewString()
	if err := e.registry.AddButton(ctx, action.ContestID, domain.Button{Label: "Новая кнопка", Action: token}); err != nil {
		e.logger.Error("failed to add button", "contest_id", action.ContestID, "error", err)
		e.replyError(ctx, callback, err)
		return
	}

	e.logger.Info("button added", "contest_id", action.ContestID, "action", token)
	e.postSync.Sync(ctx, action.ContestID)
	e.ShowMenu(ctx, callbackChatID(callback), action.ContestID, callbackMessageID(callback), "Кнопка добавлена!")
}

// HandleRemoveMenu shows the which-button picker for removal
func (e *ButtonEditorFSM) HandleRemoveMenu(ctx context.Context, callback *models.CallbackQuery, action Action) {
	e.answer(ctx, callback.ID, "Удаление кнопки")

	contest, err := e.registry.GetContest(ctx, action.ContestID)
	if err != nil {
		e.replyError(ctx, callback, err)
		return
	}

	if len(contest.Buttons) <= 1 {
		e.sendText(ctx, callbackChatID(callback), "Невозможно удалить единственную кнопку!")
		return
	}

	e.showPicker(ctx, callback, contest, ActionRemoveButton, "Выберите кнопку для удаления:")
}

// HandleRemoveButton removes the picked button
func (e *ButtonEditorFSM) HandleRemoveButton(ctx context.Context, callback *models.CallbackQuery, action Action) {
	removed, err := e.registry.RemoveButton(ctx, action.ContestID, action.Index)
	if err != nil {
		e.answer(ctx, callback.ID, "")
		if err == domain.ErrLastButton {
			e.sendText(ctx, callbackChatID(callback), "Невозможно удалить единственную кнопку!")
			return
		}
		e.logger.Error("failed to remove button", "contest_id", action.ContestID, "index", action.Index, "error", err)
		e.replyError(ctx, callback, err)
		return
	}

	e.answer(ctx, callback.ID, "Кнопка удалена")
	e.logger.Info("button removed", "contest_id", action.ContestID, "index", action.Index)
	e.postSync.Sync(ctx, action.ContestID)
	e.ShowMenu(ctx, callbackChatID(callback), action.ContestID, callbackMessageID(callback), fmt.Sprintf("Кнопка \"%s\" удалена!", removed.Label))
}

// HandleEditLabelMenu shows the which-button picker for label editing
func (e *ButtonEditorFSM) HandleEditLabelMenu(ctx context.Context, callback *models.CallbackQuery, action Action) {
	e.answer(ctx, callback.ID, "Редактирование текста кнопки")

	contest, err := e.registry.GetContest(ctx, action.ContestID)
	if err != nil {
		e.replyError(ctx, callback, err)
		return
	}
	e.showPicker(ctx, callback, contest, ActionEditLabel, "Выберите кнопку для изменения текста:")
}

// HandleEditActionMenu shows the which-button picker for action-token editing
func (e *ButtonEditorFSM) HandleEditActionMenu(ctx context.Context, callback *models.CallbackQuery, action Action) {
	e.answer(ctx, callback.ID, "Редактирование callback данных кнопки")

	contest, err := e.registry.GetContest(ctx, action.ContestID)
	if err != nil {
		e.replyError(ctx, callback, err)
		return
	}
	e.showPicker(ctx, callback, contest, ActionEditAction, "Выберите кнопку для изменения callback данных:")
}

// HandlePickButton records the button-edit marker and prompts for the value
func (e *ButtonEditorFSM) HandlePickButton(ctx context.Context, callback *models.CallbackQuery, action Action) {
	userID := callback.From.ID

	contest, err := e.registry.GetContest(ctx, action.ContestID)
	if err != nil {
		e.answer(ctx, callback.ID, "")
		e.replyError(ctx, callback, err)
		return
	}
	if action.Index < 0 || action.Index >= len(contest.Buttons) {
		e.answer(ctx, callback.ID, "Кнопка не найдена")
		return
	}
	button := contest.Buttons[action.Index]

	attribute := domain.ButtonAttributeLabel
	prompt := fmt.Sprintf("Введите новый текст для кнопки \"%s\":", button.Label)
	notice := "Введите новый текст"
	if action.Kind == ActionEditAction {
		attribute = domain.ButtonAttributeAction
		prompt = fmt.Sprintf("Введите новые callback данные для кнопки \"%s\" (текущие: %s):", button.Label, button.Action)
		notice = "Введите новый callback"
	}

	editCtx := &domain.ButtonEditContext{
		ContestID:   action.ContestID,
		ButtonIndex: action.Index,
		Attribute:   attribute,
	}
	if err := e.dialogs.Set(ctx, userID, StateButtonEditValue, editCtx.ToMap()); err != nil {
		e.logger.Error("failed to store button edit marker", "user_id", userID, "error", err)
		e.answer(ctx, callback.ID, "")
		return
	}

	e.answer(ctx, callback.ID, notice)
	e.logger.Info("state transition", "user_id", userID, "new_state", StateButtonEditValue, "contest_id", action.ContestID, "button_index", action.Index, "attribute", attribute)
	e.sendText(ctx, callbackChatID(callback), prompt)
}

// HandleValueInput consumes the free-text value for a pending button edit
func (e *ButtonEditorFSM) HandleValueInput(ctx context.Context, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	value := strings.TrimSpace(update.Message.Text)

	_, data, err := e.dialogs.Get(ctx, userID)
	if err != nil {
		e.logger.Error("failed to load button edit marker", "user_id", userID, "error", err)
		return
	}

	editCtx := &domain.ButtonEditContext{}
	if err := editCtx.FromMap(data); err != nil {
		e.logger.Error("corrupted button edit marker", "user_id", userID, "error", err)
		_ = e.dialogs.Delete(ctx, userID)
		return
	}

	if value == "" {
		e.sendText(ctx, chatID, "❌ Значение не может быть пустым. Попробуйте снова:")
		return
	}

	var confirmation string
	switch editCtx.Attribute {
	case domain.ButtonAttributeLabel:
		err = e.registry.UpdateButtonLabel(ctx, editCtx.ContestID, editCtx.ButtonIndex, value)
		confirmation = fmt.Sprintf("Текст кнопки обновлен на: %s", value)
	case domain.ButtonAttributeAction:
		err = e.registry.UpdateButtonAction(ctx, editCtx.ContestID, editCtx.ButtonIndex, value)
		confirmation = fmt.Sprintf("Callback-данные кнопки обновлены на: %s", value)
	}
	if err != nil {
		e.logger.Error("failed to update button", "contest_id", editCtx.ContestID, "index", editCtx.ButtonIndex, "error", err)
		e.sendText(ctx, chatID, "Конкурс не найден.")
		_ = e.dialogs.Delete(ctx, userID)
		return
	}

	_ = e.dialogs.Delete(ctx, userID)
	e.logger.Info("button updated", "contest_id", editCtx.ContestID, "index", editCtx.ButtonIndex, "attribute", editCtx.Attribute)
	e.sendText(ctx, chatID, confirmation)
	e.postSync.Sync(ctx, editCtx.ContestID)
}

// HandleDone closes the editor menu outside the creation wizard
func (e *ButtonEditorFSM) HandleDone(ctx context.Context, callback *models.CallbackQuery) {
	e.answer(ctx, callback.ID, "Настройка кнопок завершена")
	if messageID := callbackMessageID(callback); messageID != 0 {
		_, err := e.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    callbackChatID(callback),
			MessageID: messageID,
			Text:      "Редактирование кнопок завершено.",
		})
		if err != nil {
			e.logger.Error("failed to close button menu", "error", err)
		}
	}
}

// showPicker renders a pick-a-button keyboard, two buttons per row, with a
// trailing cancel row
func (e *ButtonEditorFSM) showPicker(ctx context.Context, callback *models.CallbackQuery, contest *domain.Contest, kind ActionKind, title string) {
	picks := make([]models.InlineKeyboardButton, 0, len(contest.Buttons))
	for i, btn := range contest.Buttons {
		picks = append(picks, models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%d. %s", i+1, btn.Label),
			CallbackData: Action{Kind: kind, ContestID: contest.ID, Index: i}.Encode(),
		})
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(picks)/2+2)
	for i := 0; i < len(picks); i += 2 {
		row := picks[i : i+1]
		if i+1 < len(picks) {
			row = picks[i : i+2]
		}
		rows = append(rows, row)
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "Отмена", CallbackData: Action{Kind: ActionButtonsDone}.Encode()},
	})

	_, err := e.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      callbackChatID(callback),
		MessageID:   callbackMessageID(callback),
		Text:        title,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		e.logger.Error("failed to show button picker", "contest_id", contest.ID, "error", err)
	}
}

func (e *ButtonEditorFSM) answer(ctx context.Context, callbackID string, text string) {
	_, err := e.messenger.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		e.logger.Error("failed to answer callback", "error", err)
	}
}

func (e *ButtonEditorFSM) replyError(ctx context.Context, callback *models.CallbackQuery, err error) {
	text := "Конкурс не найден."
	if err != domain.ErrContestNotFound {
		text = fmt.Sprintf("Ошибка: %v", err)
	}
	e.sendText(ctx, callbackChatID(callback), text)
}

func (e *ButtonEditorFSM) sendText(ctx context.Context, chatID int64, text string) {
	_, err := e.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		e.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// renderButtonList renders the numbered button inventory shown in menus
func renderButtonList(buttons []domain.Button) string {
	var sb strings.Builder
	for i, btn := range buttons {
		sb.WriteString(fmt.Sprintf("%d. \"%s\" (%s)\n", i+1, btn.Label, btn.Action))
	}
	return sb.String()
}

// callbackChatID extracts the originating chat of a callback query
func callbackChatID(callback *models.CallbackQuery) int64 {
	if callback.Message.Message != nil {
		return callback.Message.Message.Chat.ID
	}
	return callback.From.ID
}

// callbackMessageID extracts the message carrying the pressed keyboard
func callbackMessageID(callback *models.CallbackQuery) int {
	if callback.Message.Message != nil {
		return callback.Message.Message.ID
	}
	return 0
}
