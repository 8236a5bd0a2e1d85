package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/logger"
	"github.com/ad/telegram-contest-bot/internal/storage"
)

func newBroadcastEnv(t *testing.T, participantIDs ...int64) (*MockMessenger, *BroadcastDispatcher) {
	t.Helper()
	log := logger.New(logger.ERROR)
	mock := NewMockMessenger()
	registry := storage.NewContestRegistry(log)

	contest := &domain.Contest{
		ID:        "c1",
		Text:      "Розыгрыш",
		Buttons:   []domain.Button{{Label: "Зарегистрироваться", Action: "register_c1"}},
		CreatedAt: time.Now(),
	}
	if err := registry.CreateContest(context.Background(), contest); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}
	for _, id := range participantIDs {
		if _, err := registry.RegisterParticipant(context.Background(), "c1", id, "user"); err != nil {
			t.Fatalf("RegisterParticipant failed: %v", err)
		}
	}

	return mock, NewBroadcastDispatcher(mock, registry, 0, log)
}

func TestBroadcastReachesAllParticipants(t *testing.T) {
	mock, dispatcher := newBroadcastEnv(t, 100, 200, 300)

	report, err := dispatcher.Run(context.Background(), "c1", "Конкурс стартует завтра!")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Sent != 3 || report.Failed != 0 || report.Total != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(mock.sent) != 3 {
		t.Errorf("expected 3 sends, got %d", len(mock.sent))
	}
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	mock, dispatcher := newBroadcastEnv(t, 100, 200, 300)
	mock.SetSendError(200, errors.New("blocked by user"))

	report, err := dispatcher.Run(context.Background(), "c1", "Напоминание")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Sent != 2 || report.Failed != 1 || report.Total != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
	// The failed participant must not stop delivery to later ones
	if len(mock.sent) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(mock.sent))
	}
}

func TestBroadcastUnknownContest(t *testing.T) {
	_, dispatcher := newBroadcastEnv(t)

	if _, err := dispatcher.Run(context.Background(), "missing", "текст"); err == nil {
		t.Error("expected error for unknown contest")
	}
}

func TestBroadcastCancelledContextStopsLoop(t *testing.T) {
	log := logger.New(logger.ERROR)
	mock := NewMockMessenger()
	registry := storage.NewContestRegistry(log)

	contest := &domain.Contest{
		ID:        "c1",
		Text:      "Розыгрыш",
		Buttons:   []domain.Button{{Label: "Зарегистрироваться", Action: "register_c1"}},
		CreatedAt: time.Now(),
	}
	if err := registry.CreateContest(context.Background(), contest); err != nil {
		t.Fatalf("CreateContest failed: %v", err)
	}
	for _, id := range []int64{100, 200, 300} {
		if _, err := registry.RegisterParticipant(context.Background(), "c1", id, "user"); err != nil {
			t.Fatalf("RegisterParticipant failed: %v", err)
		}
	}

	dispatcher := NewBroadcastDispatcher(mock, registry, time.Minute, log)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := dispatcher.Run(ctx, "c1", "текст")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The first send happens before any pacing wait; the cancelled context
	// stops the loop at the first delay
	if report.Sent != 1 {
		t.Errorf("expected 1 send before cancellation, got %d", report.Sent)
	}
}
