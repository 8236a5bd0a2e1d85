package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/logger"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestRegistry() *ContestRegistry {
	return NewContestRegistry(logger.New(logger.ERROR))
}

func testContest(id string, buttons ...domain.Button) *domain.Contest {
	if len(buttons) == 0 {
		buttons = []domain.Button{{Label: "Зарегистрироваться", Action: "register_" + id}}
	}
	return &domain.Contest{
		ID:        id,
		Text:      "Конкурс",
		Buttons:   buttons,
		CreatedAt: time.Now(),
	}
}

func TestCreateContestRejectsDuplicates(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1")); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}
	if err := r.CreateContest(ctx, testContest("c1")); err != domain.ErrContestExists {
		t.Errorf("expected ErrContestExists, got %v", err)
	}
}

func TestGetContestReturnsCopy(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1")); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}

	first, err := r.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	first.Text = "изменено снаружи"
	first.Buttons[0].Label = "другая"

	second, err := r.GetContest(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContest failed: %v", err)
	}
	if second.Text != "Конкурс" || second.Buttons[0].Label != "Зарегистрироваться" {
		t.Error("mutation of a returned contest leaked into the registry")
	}
}

// Property: registering the same user any number of times yields exactly
// one participant, and only the first attempt reports creation
func TestProperty_RegistrationIdempotent(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("duplicate registrations collapse", prop.ForAll(
		func(userID int64, attempts int) bool {
			r := newTestRegistry()
			ctx := context.Background()
			if err := r.CreateContest(ctx, testContest("c1")); err != nil {
				return false
			}

			created := 0
			for i := 0; i < attempts; i++ {
				result, err := r.RegisterParticipant(ctx, "c1", userID, "user")
				if err != nil {
					return false
				}
				if result == domain.RegistrationCreated {
					created++
				}
			}

			participants, err := r.Participants(ctx, "c1")
			if err != nil {
				return false
			}
			return created == 1 && len(participants) == 1
		},
		gen.Int64Range(1, 1<<40),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestParticipantsKeepInsertionOrder(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1")); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}

	ids := []int64{500, 3, 999, 42, 7}
	for _, id := range ids {
		if _, err := r.RegisterParticipant(ctx, "c1", id, fmt.Sprintf("user%d", id)); err != nil {
			t.Fatalf("RegisterParticipant failed: %v", err)
		}
	}

	participants, err := r.Participants(ctx, "c1")
	if err != nil {
		t.Fatalf("Participants failed: %v", err)
	}
	for i, p := range participants {
		if p.ID != ids[i] {
			t.Fatalf("order broken at %d: got %d, want %d", i, p.ID, ids[i])
		}
	}
}

func TestRegisterParticipantUnknownContest(t *testing.T) {
	r := newTestRegistry()

	result, err := r.RegisterParticipant(context.Background(), "missing", 1, "user")
	if err != nil {
		t.Fatalf("RegisterParticipant failed: %v", err)
	}
	if result != domain.RegistrationContestNotFound {
		t.Errorf("expected RegistrationContestNotFound, got %v", result)
	}
}

func TestRemoveButtonGuards(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1",
		domain.Button{Label: "A", Action: "register_c1"},
		domain.Button{Label: "B", Action: "custom_b"},
	)); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}

	if _, err := r.RemoveButton(ctx, "c1", 5); err != domain.ErrButtonIndex {
		t.Errorf("expected ErrButtonIndex, got %v", err)
	}

	removed, err := r.RemoveButton(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("RemoveButton failed: %v", err)
	}
	if removed.Label != "B" {
		t.Errorf("removed wrong button: %+v", removed)
	}

	if _, err := r.RemoveButton(ctx, "c1", 0); err != domain.ErrLastButton {
		t.Errorf("expected ErrLastButton, got %v", err)
	}
}

func TestButtonUpdates(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1")); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}

	if err := r.UpdateButtonLabel(ctx, "c1", 0, "Участвовать"); err != nil {
		t.Fatalf("UpdateButtonLabel failed: %v", err)
	}
	if err := r.UpdateButtonAction(ctx, "c1", 0, "custom_join"); err != nil {
		t.Fatalf("UpdateButtonAction failed: %v", err)
	}
	if err := r.UpdateButtonLabel(ctx, "c1", 9, "x"); err != domain.ErrButtonIndex {
		t.Errorf("expected ErrButtonIndex, got %v", err)
	}

	contest, _ := r.GetContest(ctx, "c1")
	if contest.Buttons[0].Label != "Участвовать" || contest.Buttons[0].Action != "custom_join" {
		t.Errorf("updates not applied: %+v", contest.Buttons[0])
	}
}

func TestRegistrationFormProgression(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	contest := testContest("c1")
	contest.RegistrationFields = []domain.RegistrationField{
		{Name: "email", Prompt: "Ваш email?"},
		{Name: "city", Prompt: "Ваш город?"},
	}
	if err := r.CreateContest(ctx, contest); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}
	if _, err := r.RegisterParticipant(ctx, "c1", 100, "alice"); err != nil {
		t.Fatalf("RegisterParticipant failed: %v", err)
	}

	first, started, err := r.BeginRegistrationForm(ctx, "c1", 100)
	if err != nil || !started {
		t.Fatalf("BeginRegistrationForm: started=%v err=%v", started, err)
	}
	if first.Name != "email" {
		t.Errorf("wrong first field: %+v", first)
	}

	if id, ok, _ := r.ActiveForm(ctx, 100); !ok || id != "c1" {
		t.Errorf("ActiveForm = (%q, %v)", id, ok)
	}

	next, done, err := r.AdvanceRegistrationForm(ctx, "c1", 100, "a@b.c")
	if err != nil || done {
		t.Fatalf("AdvanceRegistrationForm: done=%v err=%v", done, err)
	}
	if next.Name != "city" {
		t.Errorf("wrong next field: %+v", next)
	}

	_, done, err = r.AdvanceRegistrationForm(ctx, "c1", 100, "Москва")
	if err != nil || !done {
		t.Fatalf("AdvanceRegistrationForm: done=%v err=%v", done, err)
	}

	if _, ok, _ := r.ActiveForm(ctx, 100); ok {
		t.Error("form must be closed after the last answer")
	}

	participants, _ := r.Participants(ctx, "c1")
	if participants[0].Answers["email"] != "a@b.c" || participants[0].Answers["city"] != "Москва" {
		t.Errorf("answers not recorded: %v", participants[0].Answers)
	}
}

func TestBeginFormWithoutFields(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1")); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}
	if _, err := r.RegisterParticipant(ctx, "c1", 100, "alice"); err != nil {
		t.Fatalf("RegisterParticipant failed: %v", err)
	}

	_, started, err := r.BeginRegistrationForm(ctx, "c1", 100)
	if err != nil {
		t.Fatalf("BeginRegistrationForm failed: %v", err)
	}
	if started {
		t.Error("form must not start for a contest without fields")
	}
}

func TestStartNowMarksContest(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.CreateContest(ctx, testContest("c1")); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}

	at := time.Now()
	if err := r.StartNow(ctx, "c1", at); err != nil {
		t.Fatalf("StartNow failed: %v", err)
	}
	contest, _ := r.GetContest(ctx, "c1")
	if !contest.EarlyStart || contest.StartedAt.IsZero() {
		t.Errorf("start not recorded: early=%v at=%v", contest.EarlyStart, contest.StartedAt)
	}

	if err := r.StartNow(ctx, "missing", at); err != domain.ErrContestNotFound {
		t.Errorf("expected ErrContestNotFound, got %v", err)
	}
}

func TestSettersOnUnknownContest(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if err := r.SetText(ctx, "missing", "x"); err != domain.ErrContestNotFound {
		t.Errorf("SetText: expected ErrContestNotFound, got %v", err)
	}
	if err := r.SetDeadline(ctx, "missing", "31.12"); err != domain.ErrContestNotFound {
		t.Errorf("SetDeadline: expected ErrContestNotFound, got %v", err)
	}
	if err := r.SetMessageID(ctx, "missing", 1); err != domain.ErrContestNotFound {
		t.Errorf("SetMessageID: expected ErrContestNotFound, got %v", err)
	}
}
