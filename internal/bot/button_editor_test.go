package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/logger"
	"github.com/ad/telegram-contest-bot/internal/storage"
)

type editorEnv struct {
	mock     *MockMessenger
	registry *storage.ContestRegistry
	dialogs  *storage.DialogueStorage
	editor   *ButtonEditorFSM
}

func newEditorEnv(t *testing.T, buttons ...domain.Button) *editorEnv {
	t.Helper()
	log := logger.New(logger.ERROR)
	mock := NewMockMessenger()
	registry := storage.NewContestRegistry(log)
	dialogs := storage.NewDialogueStorage(log)
	postSync := NewPostSynchronizer(mock, registry, "@testchannel", log)

	contest := &domain.Contest{
		ID:        "c1",
		Text:      "Конкурс",
		Buttons:   buttons,
		CreatedAt: time.Now(),
	}
	if err := registry.CreateContest(context.Background(), contest); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}

	return &editorEnv{
		mock:     mock,
		registry: registry,
		dialogs:  dialogs,
		editor:   NewButtonEditorFSM(dialogs, mock, registry, postSync, log),
	}
}

func TestRemoveMenuRefusesLastButton(t *testing.T) {
	env := newEditorEnv(t, domain.Button{Label: "Зарегистрироваться", Action: "register_c1"})
	ctx := context.Background()

	update := callbackUpdate(1, 1, 10, "btn_remove_menu:c1")
	env.editor.HandleRemoveMenu(ctx, update.CallbackQuery, Action{Kind: ActionRemoveButtonMenu, ContestID: "c1"})

	if !containsText(env.mock.SentTexts(), "Невозможно удалить единственную кнопку!") {
		t.Errorf("expected last-button refusal, got %v", env.mock.SentTexts())
	}

	contest, err := env.registry.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	if len(contest.Buttons) != 1 {
		t.Errorf("button count changed: %d", len(contest.Buttons))
	}
}

func TestAddButtonGeneratesUniqueAction(t *testing.T) {
	env := newEditorEnv(t, domain.Button{Label: "Зарегистрироваться", Action: "register_c1"})
	ctx := context.Background()

	update := callbackUpdate(1, 1, 10, "btn_add:c1")
	env.editor.HandleAddButton(ctx, update.CallbackQuery, Action{Kind: ActionAddButton, ContestID: "c1"})
	env.editor.HandleAddButton(ctx, update.CallbackQuery, Action{Kind: ActionAddButton, ContestID: "c1"})

	contest, err := env.registry.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	if len(contest.Buttons) != 3 {
		t.Fatalf("expected 3 buttons, got %d", len(contest.Buttons))
	}
	second, third := contest.Buttons[1], contest.Buttons[2]
	if second.Label != "Новая кнопка" || !strings.HasPrefix(second.Action, "custom_") {
		t.Errorf("unexpected added button: %+v", second)
	}
	if second.Action == third.Action {
		t.Error("generated action tokens must be unique")
	}
}

func TestRemoveButtonUpdatesMenu(t *testing.T) {
	env := newEditorEnv(t,
		domain.Button{Label: "Зарегистрироваться", Action: "register_c1"},
		domain.Button{Label: "Правила", Action: "custom_rules"},
	)
	ctx := context.Background()

	update := callbackUpdate(1, 1, 10, "btn_remove:c1:1")
	env.editor.HandleRemoveButton(ctx, update.CallbackQuery, Action{Kind: ActionRemoveButton, ContestID: "c1", Index: 1})

	contest, err := env.registry.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	if len(contest.Buttons) != 1 {
		t.Fatalf("expected 1 button, got %d", len(contest.Buttons))
	}
	if answered := env.mock.LastAnswered(); answered == nil || answered.Text != "Кнопка удалена" {
		t.Errorf("expected removal ack, got %+v", answered)
	}
	if len(env.mock.edited) == 0 {
		t.Fatal("menu message must be edited after removal")
	}
	menu := env.mock.edited[len(env.mock.edited)-1].Text
	if !strings.Contains(menu, "Кнопка \"Правила\" удалена!") {
		t.Errorf("menu header missing removed label: %q", menu)
	}
}

func TestValueInputUpdatesLabel(t *testing.T) {
	env := newEditorEnv(t,
		domain.Button{Label: "Зарегистрироваться", Action: "register_c1"},
		domain.Button{Label: "Правила", Action: "custom_rules"},
	)
	ctx := context.Background()

	// Pick a button for label editing
	update := callbackUpdate(1, 1, 10, "btn_label:c1:1")
	env.editor.HandlePickButton(ctx, update.CallbackQuery, Action{Kind: ActionEditLabel, ContestID: "c1", Index: 1})

	if !env.editor.HasSession(ctx, 1) {
		t.Fatal("value marker expected after pick")
	}

	env.editor.HandleValueInput(ctx, textMessage(1, 1, "Условия"))

	contest, err := env.registry.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	if contest.Buttons[1].Label != "Условия" {
		t.Errorf("label not updated: %+v", contest.Buttons[1])
	}
	if !containsText(env.mock.SentTexts(), "Текст кнопки обновлен на: Условия") {
		t.Errorf("expected confirmation, got %v", env.mock.SentTexts())
	}
	if env.editor.HasSession(ctx, 1) {
		t.Error("value marker must be cleared after the edit")
	}
}

func TestValueInputUpdatesAction(t *testing.T) {
	env := newEditorEnv(t,
		domain.Button{Label: "Зарегистрироваться", Action: "register_c1"},
		domain.Button{Label: "Правила", Action: "custom_rules"},
	)
	ctx := context.Background()

	update := callbackUpdate(1, 1, 10, "btn_action:c1:1")
	env.editor.HandlePickButton(ctx, update.CallbackQuery, Action{Kind: ActionEditAction, ContestID: "c1", Index: 1})
	env.editor.HandleValueInput(ctx, textMessage(1, 1, "custom_terms"))

	contest, err := env.registry.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	if contest.Buttons[1].Action != "custom_terms" {
		t.Errorf("action not updated: %+v", contest.Buttons[1])
	}
	if !containsText(env.mock.SentTexts(), "Callback-данные кнопки обновлены на: custom_terms") {
		t.Errorf("expected confirmation, got %v", env.mock.SentTexts())
	}
}

func TestShowMenuListsButtons(t *testing.T) {
	env := newEditorEnv(t,
		domain.Button{Label: "Зарегистрироваться", Action: "register_c1"},
		domain.Button{Label: "Правила", Action: "custom_rules"},
	)

	env.editor.ShowMenu(context.Background(), 1, "c1", 0, "")

	if len(env.mock.sent) != 1 {
		t.Fatalf("expected 1 menu message, got %d", len(env.mock.sent))
	}
	menu := env.mock.sent[0].Text
	if !strings.Contains(menu, "1. \"Зарегистрироваться\" (register_c1)") ||
		!strings.Contains(menu, "2. \"Правила\" (custom_rules)") {
		t.Errorf("menu missing button list: %q", menu)
	}
}
