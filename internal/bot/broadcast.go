package bot

import (
	"context"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/metrics"

	"github.com/go-telegram/bot"
)

// BroadcastReport summarizes one broadcast run
type BroadcastReport struct {
	Sent   int
	Failed int
	Total  int
}

// BroadcastDispatcher fans an admin-authored message out to every
// registrant of a contest. Sends are sequential with a fixed pacing delay;
// a failed send (e.g. the participant blocked the bot) is counted and the
// run continues. The participant list is snapshotted up front, so no
// registry lock is held while sending.
type BroadcastDispatcher struct {
	messenger Messenger
	registry  domain.ContestRegistry
	delay     time.Duration
	logger    domain.Logger
}

// NewBroadcastDispatcher creates a new BroadcastDispatcher
func NewBroadcastDispatcher(messenger Messenger, registry domain.ContestRegistry, delay time.Duration, log domain.Logger) *BroadcastDispatcher {
	return &BroadcastDispatcher{
		messenger: messenger,
		registry:  registry,
		delay:     delay,
		logger:    log,
	}
}

// Run delivers text to every participant of the contest and reports
// delivery counts
func (d *BroadcastDispatcher) Run(ctx context.Context, contestID string, text string) (BroadcastReport, error) {
	participants, err := d.registry.Participants(ctx, contestID)
	if err != nil {
		return BroadcastReport{}, err
	}

	report := BroadcastReport{Total: len(participants)}
	for i, p := range participants {
		if i > 0 && d.delay > 0 {
			select {
			case <-ctx.Done():
				d.logger.Warn("broadcast interrupted", "contest_id", contestID, "sent", report.Sent, "total", report.Total)
				return report, ctx.Err()
			case <-time.After(d.delay):
			}
		}

		_, err := d.messenger.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: p.ID,
			Text:   text,
		})
		if err != nil {
			report.Failed++
			metrics.BroadcastFailedTotal.Inc()
			d.logger.Error("failed to send broadcast message", "contest_id", contestID, "user_id", p.ID, "error", err)
			continue
		}
		report.Sent++
		metrics.BroadcastSentTotal.Inc()
	}

	d.logger.Info("broadcast completed", "contest_id", contestID, "sent", report.Sent, "failed", report.Failed, "total", report.Total)
	return report, nil
}
