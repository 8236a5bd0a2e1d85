package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/metrics"
	"github.com/ad/telegram-contest-bot/internal/storage"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Marker states for single-value admin inputs
const (
	StateAwaitingDeadline  = "awaiting_deadline"
	StateAwaitingBroadcast = "awaiting_broadcast"
)

// BotHandler routes incoming updates to commands, dialogue engines and
// callback actions
type BotHandler struct {
	adminID      int64
	messenger    Messenger
	dialogs      *storage.DialogueStorage
	registry     domain.ContestRegistry
	deepLinks    *domain.DeepLinkService
	postSync     *PostSynchronizer
	broadcaster  *BroadcastDispatcher
	creation     *ContestCreationFSM
	buttons      *ButtonEditorFSM
	registration *RegistrationFSM
	exporter     *ParticipantExporter
	logger       domain.Logger
}

// NewBotHandler creates a new BotHandler
func NewBotHandler(
	adminID int64,
	messenger Messenger,
	dialogs *storage.DialogueStorage,
	registry domain.ContestRegistry,
	deepLinks *domain.DeepLinkService,
	postSync *PostSynchronizer,
	broadcaster *BroadcastDispatcher,
	creation *ContestCreationFSM,
	buttons *ButtonEditorFSM,
	registration *RegistrationFSM,
	exporter *ParticipantExporter,
	log domain.Logger,
) *BotHandler {
	return &BotHandler{
		adminID:      adminID,
		messenger:    messenger,
		dialogs:      dialogs,
		registry:     registry,
		deepLinks:    deepLinks,
		postSync:     postSync,
		broadcaster:  broadcaster,
		creation:     creation,
		buttons:      buttons,
		registration: registration,
		exporter:     exporter,
		logger:       log,
	}
}

func (h *BotHandler) isAdmin(userID int64) bool {
	return userID == h.adminID
}

// requireAdmin replies with the rejection text for non-admin actors.
// Messages without a sender (service or anonymous posts) never pass.
func (h *BotHandler) requireAdmin(ctx context.Context, update *models.Update) bool {
	if update.Message.From != nil && h.isAdmin(update.Message.From.ID) {
		return true
	}
	h.sendText(ctx, update.Message.Chat.ID, "Эта команда доступна только администратору.")
	return false
}

// HandleStart greets the admin or processes a registration deep link
func (h *BotHandler) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	metrics.UpdatesTotal.Inc()

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if h.isAdmin(userID) {
		h.sendText(ctx, chatID, "Добро пожаловать, админ! Вы можете создать конкурс командой /new_contest")
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) > 1 {
		contestID, err := h.deepLinks.ParseContestIDFromStart(parts[1])
		if err == nil {
			h.registration.Start(ctx, chatID, userID, displayName(update.Message.From), contestID)
			return
		}
		h.logger.Debug("unrecognized start payload", "user_id", userID, "payload", parts[1])
	}

	h.sendText(ctx, chatID, "Добро пожаловать! Перейдите по ссылке из канала, чтобы зарегистрироваться на конкурс.")
}

// HandleNewContest opens the contest creation wizard
func (h *BotHandler) HandleNewContest(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()
	h.creation.Start(ctx, update.Message.Chat.ID, update.Message.From.ID)
}

// HandleListContests prints the contest inventory
func (h *BotHandler) HandleListContests(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()

	contests, err := h.registry.ListContests(ctx)
	if err != nil || len(contests) == 0 {
		h.sendText(ctx, update.Message.Chat.ID, "Конкурсы не найдены.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Список конкурсов:\n\n")
	for _, c := range contests {
		deadline := c.Deadline
		if deadline == "" {
			deadline = "не установлен"
		}
		sb.WriteString(fmt.Sprintf("ID: %s\n", c.ID))
		sb.WriteString(fmt.Sprintf("Участников: %d\n", len(c.Participants)))
		sb.WriteString(fmt.Sprintf("Дедлайн: %s\n\n", deadline))
	}
	h.sendText(ctx, update.Message.Chat.ID, sb.String())
}

// HandleRegistrations prints the paginated roster with an export offer
func (h *BotHandler) HandleRegistrations(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()

	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		h.sendText(ctx, update.Message.Chat.ID, "Использование: /registrations [ID конкурса]")
		return
	}
	h.showRegistrations(ctx, update.Message.Chat.ID, args[1])
}

// HandleEditButtons opens the button editor for a published contest
func (h *BotHandler) HandleEditButtons(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()

	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		h.sendText(ctx, update.Message.Chat.ID, "Использование: /edit_buttons [ID конкурса]")
		return
	}
	h.buttons.ShowMenu(ctx, update.Message.Chat.ID, args[1], 0, "")
}

// HandleSetDeadline sets the deadline inline, or arms a capture marker
// when the date is omitted
func (h *BotHandler) HandleSetDeadline(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()

	chatID := update.Message.Chat.ID
	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		h.sendText(ctx, chatID, "Использование: /set_deadline [ID конкурса] [дата дедлайна]")
		return
	}

	contestID := args[1]
	if _, err := h.registry.GetContest(ctx, contestID); err != nil {
		h.sendText(ctx, chatID, "Конкурс не найден.")
		return
	}

	if len(args) == 2 {
		h.armInputMarker(ctx, update.Message.From.ID, StateAwaitingDeadline, contestID)
		h.sendText(ctx, chatID, fmt.Sprintf("Введите дату дедлайна для конкурса %s:", contestID))
		return
	}

	h.applyDeadline(ctx, chatID, contestID, strings.Join(args[2:], " "))
}

// HandleBroadcast sends a message to every participant, or arms a capture
// marker when the text is omitted
func (h *BotHandler) HandleBroadcast(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()

	chatID := update.Message.Chat.ID
	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		h.sendText(ctx, chatID, "Использование: /broadcast [ID конкурса] [текст сообщения]")
		return
	}

	contestID := args[1]
	if _, err := h.registry.GetContest(ctx, contestID); err != nil {
		h.sendText(ctx, chatID, "Конкурс не найден.")
		return
	}

	if len(args) == 2 {
		h.armInputMarker(ctx, update.Message.From.ID, StateAwaitingBroadcast, contestID)
		h.sendText(ctx, chatID, fmt.Sprintf("Введите текст рассылки для конкурса %s:", contestID))
		return
	}

	h.runBroadcast(ctx, chatID, contestID, strings.Join(args[2:], " "))
}

// HandleAdmin shows the contest picker of the management panel
func (h *BotHandler) HandleAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !h.requireAdmin(ctx, update) {
		return
	}
	metrics.UpdatesTotal.Inc()

	contests, err := h.registry.ListContests(ctx)
	if err != nil || len(contests) == 0 {
		h.sendText(ctx, update.Message.Chat.ID, "Конкурсы не найдены.")
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(contests))
	for _, c := range contests {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (участников: %d)", c.ID, len(c.Participants)),
			CallbackData: Action{Kind: ActionAdminContest, ContestID: c.ID}.Encode(),
		}})
	}

	_, err = h.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        "Выберите конкурс:",
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		h.logger.Error("failed to send admin panel", "error", err)
	}
}

// HandleMessage is the free-text dispatcher. Precedence: a participant
// filling a registration form wins over everything; then the admin's
// pending input marker decides which engine consumes the text.
func (h *BotHandler) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	text := update.Message.Text
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}
	metrics.UpdatesTotal.Inc()

	userID := update.Message.From.ID

	if h.registration.HasSession(ctx, userID) {
		h.registration.HandleMessage(ctx, update)
		return
	}

	if !h.isAdmin(userID) {
		return
	}

	if h.buttons.HasSession(ctx, userID) {
		h.buttons.HandleValueInput(ctx, update)
		return
	}

	if h.creation.AwaitsInput(ctx, userID) {
		h.creation.HandleMessage(ctx, update)
		return
	}

	state, data, err := h.dialogs.Get(ctx, userID)
	if err != nil {
		return
	}
	input := &domain.ContestInputContext{}
	if err := input.FromMap(data); err != nil {
		return
	}

	switch state {
	case StateAwaitingDeadline:
		_ = h.dialogs.Delete(ctx, userID)
		h.applyDeadline(ctx, update.Message.Chat.ID, input.ContestID, strings.TrimSpace(text))
	case StateAwaitingBroadcast:
		_ = h.dialogs.Delete(ctx, userID)
		h.runBroadcast(ctx, update.Message.Chat.ID, input.ContestID, text)
	}
}

// HandleCallback decodes the callback token once and routes it. Every
// query is answered exactly once, unknown tokens included.
func (h *BotHandler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	metrics.UpdatesTotal.Inc()

	callback := update.CallbackQuery
	action := ParseAction(callback.Data)
	userID := callback.From.ID

	if action.Kind == ActionRegister {
		h.handleRegisterCallback(ctx, callback, action)
		return
	}

	if action.Kind != ActionUnknown && !h.isAdmin(userID) {
		h.answer(ctx, callback.ID, "Эта кнопка доступна только администратору")
		return
	}

	switch action.Kind {
	case ActionPublish:
		h.creation.HandlePublish(ctx, callback, action)
	case ActionCancelCreation:
		h.creation.HandleCancel(ctx, callback)
	case ActionAddRegistrationFields:
		h.creation.HandleAddRegistrationFields(ctx, callback)
	case ActionAddField:
		h.creation.HandleAddField(ctx, callback)
	case ActionContinueCreation:
		h.creation.HandleContinueCreation(ctx, callback)
	case ActionSetupButtons:
		h.handleSetupButtons(ctx, callback)
	case ActionButtonsDone:
		if h.creation.HasSession(ctx, userID) {
			h.creation.HandleButtonsDone(ctx, callback)
		} else {
			h.buttons.HandleDone(ctx, callback)
		}
	case ActionAddButton:
		h.buttons.HandleAddButton(ctx, callback, action)
	case ActionRemoveButtonMenu:
		h.buttons.HandleRemoveMenu(ctx, callback, action)
	case ActionRemoveButton:
		h.buttons.HandleRemoveButton(ctx, callback, action)
	case ActionEditLabelMenu:
		h.buttons.HandleEditLabelMenu(ctx, callback, action)
	case ActionEditActionMenu:
		h.buttons.HandleEditActionMenu(ctx, callback, action)
	case ActionEditLabel, ActionEditAction:
		h.buttons.HandlePickButton(ctx, callback, action)
	case ActionAdminContest:
		h.handleAdminContest(ctx, callback, action)
	case ActionAdminButtons:
		h.answer(ctx, callback.ID, "Настройка кнопок")
		h.buttons.ShowMenu(ctx, callbackChatID(callback), action.ContestID, callbackMessageID(callback), "")
	case ActionAdminDeadline:
		h.answer(ctx, callback.ID, "Установка дедлайна")
		h.armInputMarker(ctx, userID, StateAwaitingDeadline, action.ContestID)
		h.sendText(ctx, callbackChatID(callback), fmt.Sprintf("Введите дату дедлайна для конкурса %s:", action.ContestID))
	case ActionAdminBroadcast:
		h.answer(ctx, callback.ID, "Рассылка")
		h.armInputMarker(ctx, userID, StateAwaitingBroadcast, action.ContestID)
		h.sendText(ctx, callbackChatID(callback), fmt.Sprintf("Введите текст рассылки для конкурса %s:", action.ContestID))
	case ActionAdminStart:
		h.handleAdminStart(ctx, callback, action)
	case ActionAdminRegistrations:
		h.answer(ctx, callback.ID, "Регистрации")
		h.showRegistrations(ctx, callbackChatID(callback), action.ContestID)
	case ActionExportText:
		h.exporter.SendText(ctx, callback, action.ContestID)
	case ActionExportCSV:
		h.exporter.SendCSV(ctx, callback, action.ContestID)
	default:
		h.logger.Debug("unknown callback token", "data", callback.Data, "user_id", userID)
		h.answer(ctx, callback.ID, "Кнопка не найдена")
	}
}

// handleRegisterCallback answers the channel button with a deep link into
// the bot chat
func (h *BotHandler) handleRegisterCallback(ctx context.Context, callback *models.CallbackQuery, action Action) {
	if _, err := h.registry.GetContest(ctx, action.ContestID); err != nil {
		h.answer(ctx, callback.ID, "Конкурс не найден или уже завершен.")
		return
	}

	if h.isAdmin(callback.From.ID) {
		h.answer(ctx, callback.ID, "Администраторы не отображаются в списке участников")
		return
	}

	link := h.deepLinks.GenerateContestLink(action.ContestID)
	_, err := h.messenger.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            "Перейдите в бота для регистрации",
		URL:             link,
	})
	if err != nil {
		h.logger.Error("failed to answer register callback", "contest_id", action.ContestID, "error", err)
	}
}

// handleSetupButtons opens the button editor on the wizard draft
func (h *BotHandler) handleSetupButtons(ctx context.Context, callback *models.CallbackQuery) {
	contestID, ok := h.creation.ContestID(ctx, callback.From.ID)
	if !ok {
		h.answer(ctx, callback.ID, "Конкурс не найден")
		return
	}
	h.answer(ctx, callback.ID, "Настройка кнопок")
	h.buttons.ShowMenu(ctx, callbackChatID(callback), contestID, callbackMessageID(callback), "")
}

// handleAdminContest shows the per-contest management menu
func (h *BotHandler) handleAdminContest(ctx context.Context, callback *models.CallbackQuery, action Action) {
	contest, err := h.registry.GetContest(ctx, action.ContestID)
	if err != nil {
		h.answer(ctx, callback.ID, "Конкурс не найден")
		return
	}
	h.answer(ctx, callback.ID, "")

	deadline := contest.Deadline
	if deadline == "" {
		deadline = "не установлен"
	}
	published := "нет"
	if contest.Published() {
		published = "да"
	}
	text := fmt.Sprintf("Конкурс %s\nУчастников: %d\nДедлайн: %s\nОпубликован: %s", contest.ID, len(contest.Participants), deadline, published)

	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Кнопки", CallbackData: Action{Kind: ActionAdminButtons, ContestID: contest.ID}.Encode()},
				{Text: "Дедлайн", CallbackData: Action{Kind: ActionAdminDeadline, ContestID: contest.ID}.Encode()},
			},
			{
				{Text: "Рассылка", CallbackData: Action{Kind: ActionAdminBroadcast, ContestID: contest.ID}.Encode()},
				{Text: "Старт", CallbackData: Action{Kind: ActionAdminStart, ContestID: contest.ID}.Encode()},
			},
			{
				{Text: "Регистрации", CallbackData: Action{Kind: ActionAdminRegistrations, ContestID: contest.ID}.Encode()},
			},
		},
	}

	_, err = h.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      callbackChatID(callback),
		MessageID:   callbackMessageID(callback),
		Text:        text,
		ReplyMarkup: kb,
	})
	if err != nil {
		h.logger.Error("failed to show contest menu", "contest_id", contest.ID, "error", err)
	}
}

// handleAdminStart marks the contest as started ahead of its deadline
func (h *BotHandler) handleAdminStart(ctx context.Context, callback *models.CallbackQuery, action Action) {
	if err := h.registry.StartNow(ctx, action.ContestID, time.Now()); err != nil {
		h.answer(ctx, callback.ID, "Конкурс не найден")
		return
	}
	h.answer(ctx, callback.ID, "Конкурс стартовал")
	h.postSync.Sync(ctx, action.ContestID)
	h.sendText(ctx, callbackChatID(callback), fmt.Sprintf("🚀 Конкурс %s стартовал досрочно.", action.ContestID))
	h.logger.Info("contest started early", "contest_id", action.ContestID)
}

func (h *BotHandler) applyDeadline(ctx context.Context, chatID int64, contestID string, deadline string) {
	if err := h.registry.SetDeadline(ctx, contestID, deadline); err != nil {
		h.sendText(ctx, chatID, "Конкурс не найден.")
		return
	}
	h.sendText(ctx, chatID, fmt.Sprintf("Дедлайн для конкурса установлен: %s", deadline))
	h.postSync.Sync(ctx, contestID)
	h.logger.Info("deadline set", "contest_id", contestID, "deadline", deadline)
}

func (h *BotHandler) runBroadcast(ctx context.Context, chatID int64, contestID string, text string) {
	report, err := h.broadcaster.Run(ctx, contestID, text)
	if err != nil {
		h.sendText(ctx, chatID, "Конкурс не найден.")
		return
	}
	summary := fmt.Sprintf("Рассылка отправлена %d из %d участников.", report.Sent, report.Total)
	if report.Failed > 0 {
		summary += fmt.Sprintf(" Ошибок: %d.", report.Failed)
	}
	h.sendText(ctx, chatID, summary)
}

// showRegistrations sends every roster page followed by the export offer
func (h *BotHandler) showRegistrations(ctx context.Context, chatID int64, contestID string) {
	contest, err := h.registry.GetContest(ctx, contestID)
	if err != nil {
		h.sendText(ctx, chatID, "Конкурс не найден.")
		return
	}
	if len(contest.Participants) == 0 {
		h.sendText(ctx, chatID, "Нет зарегистрированных участников.")
		return
	}

	_, total := domain.RenderRegistrationsPage(contest, 0)
	for page := 0; page < total; page++ {
		body, _ := domain.RenderRegistrationsPage(contest, page)
		h.sendText(ctx, chatID, body)
	}

	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Текстовый файл", CallbackData: Action{Kind: ActionExportText, ContestID: contestID}.Encode()},
				{Text: "CSV", CallbackData: Action{Kind: ActionExportCSV, ContestID: contestID}.Encode()},
			},
		},
	}
	_, err = h.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "Выберите формат для экспорта:",
		ReplyMarkup: kb,
	})
	if err != nil {
		h.logger.Error("failed to send export offer", "contest_id", contestID, "error", err)
	}
}

func (h *BotHandler) armInputMarker(ctx context.Context, userID int64, state string, contestID string) {
	input := &domain.ContestInputContext{ContestID: contestID}
	if err := h.dialogs.Set(ctx, userID, state, input.ToMap()); err != nil {
		h.logger.Error("failed to store input marker", "user_id", userID, "state", state, "error", err)
		return
	}
	h.logger.Info("state transition", "user_id", userID, "new_state", state, "contest_id", contestID)
}

func (h *BotHandler) answer(ctx context.Context, callbackID string, text string) {
	_, err := h.messenger.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		h.logger.Error("failed to answer callback", "error", err)
	}
}

func (h *BotHandler) sendText(ctx context.Context, chatID int64, text string) {
	_, err := h.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// displayName prefers the public username over the first name
func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return ""
}
