package bot

import (
	"context"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/metrics"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// PostSynchronizer publishes contest posts to the channel and re-renders
// them when registry state changes
type PostSynchronizer struct {
	messenger Messenger
	registry  domain.ContestRegistry
	channelID string
	logger    domain.Logger
}

// NewPostSynchronizer creates a new PostSynchronizer targeting the channel
func NewPostSynchronizer(messenger Messenger, registry domain.ContestRegistry, channelID string, log domain.Logger) *PostSynchronizer {
	return &PostSynchronizer{
		messenger: messenger,
		registry:  registry,
		channelID: channelID,
		logger:    log,
	}
}

// Publish sends the contest post to the channel, pins it and records the
// message ID. Any failure is returned to the caller without recording, so
// an explicit retry publishes a fresh post.
func (s *PostSynchronizer) Publish(ctx context.Context, contestID string) (int, error) {
	contest, err := s.registry.GetContest(ctx, contestID)
	if err != nil {
		return 0, err
	}

	msg, err := s.messenger.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      s.channelID,
		Text:        contest.Text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildKeyboard(contest.Buttons),
	})
	if err != nil {
		s.logger.Error("failed to publish contest post", "contest_id", contestID, "error", err)
		return 0, err
	}

	if _, err := s.messenger.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:    s.channelID,
		MessageID: msg.ID,
	}); err != nil {
		s.logger.Error("failed to pin contest post", "contest_id", contestID, "message_id", msg.ID, "error", err)
		return 0, err
	}

	if err := s.registry.SetMessageID(ctx, contestID, msg.ID); err != nil {
		s.logger.Error("failed to record message ID", "contest_id", contestID, "message_id", msg.ID, "error", err)
		return 0, err
	}

	s.logger.Info("contest published", "contest_id", contestID, "message_id", msg.ID)
	return msg.ID, nil
}

// Sync re-renders the live channel post from current registry state. The
// registry mutation that triggered the sync has already succeeded, so a
// failed edit is logged and swallowed. Unpublished contests are a no-op.
func (s *PostSynchronizer) Sync(ctx context.Context, contestID string) {
	contest, err := s.registry.GetContest(ctx, contestID)
	if err != nil {
		s.logger.Error("failed to load contest for sync", "contest_id", contestID, "error", err)
		return
	}

	if !contest.Published() {
		s.logger.Debug("contest not published, nothing to sync", "contest_id", contestID)
		return
	}

	_, err = s.messenger.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      s.channelID,
		MessageID:   contest.MessageID,
		Text:        domain.RenderPost(contest),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildKeyboard(contest.Buttons),
	})
	if err != nil {
		s.logger.Error("failed to update contest post", "contest_id", contestID, "message_id", contest.MessageID, "error", err)
		return
	}

	metrics.PostSyncsTotal.Inc()
	s.logger.Debug("contest post updated", "contest_id", contestID, "message_id", contest.MessageID)
}

// buildKeyboard renders contest buttons two per row, in order
func buildKeyboard(buttons []domain.Button) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, (len(buttons)+1)/2)
	for i := 0; i < len(buttons); i += 2 {
		row := []models.InlineKeyboardButton{
			{Text: buttons[i].Label, CallbackData: buttons[i].Action},
		}
		if i+1 < len(buttons) {
			row = append(row, models.InlineKeyboardButton{Text: buttons[i+1].Label, CallbackData: buttons[i+1].Action})
		}
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
