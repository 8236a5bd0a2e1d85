package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/telegram-contest-bot/internal/bot"
	"github.com/ad/telegram-contest-bot/internal/config"
	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/logger"
	"github.com/ad/telegram-contest-bot/internal/metrics"
	"github.com/ad/telegram-contest-bot/internal/storage"
	"github.com/ad/telegram-contest-bot/internal/web"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logger.ParseLevel(cfg.LogLevel)
	log := logger.New(logLevel)
	log.Info("Starting Telegram Contest Bot", "log_level", cfg.LogLevel)

	// Register metrics
	metrics.Register()

	// Create storages
	registry := storage.NewContestRegistry(log.With("registry"))
	dialogs := storage.NewDialogueStorage(log.With("dialogs"))
	buttonDialogs := storage.NewDialogueStorage(log.With("button_dialogs"))
	log.Info("Storages created")

	// Create context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize Telegram bot
	b, err := tgbot.New(cfg.TelegramToken)
	if err != nil {
		log.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}
	log.Info("Telegram bot created")

	// Get bot info for deep-link service
	botInfo, err := b.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		os.Exit(1)
	}
	log.Info("Bot info retrieved", "username", botInfo.Username)

	// Create deep-link service
	deepLinkService := domain.NewDeepLinkService(botInfo.Username)

	// Create bot services
	postSync := bot.NewPostSynchronizer(b, registry, cfg.ChannelID, log.With("post_sync"))
	broadcaster := bot.NewBroadcastDispatcher(b, registry, cfg.BroadcastDelay, log.With("broadcast"))

	// Create dialogue engines
	creationFSM := bot.NewContestCreationFSM(dialogs, b, registry, postSync, log.With("creation"))
	buttonEditor := bot.NewButtonEditorFSM(buttonDialogs, b, registry, postSync, log.With("buttons"))
	registrationFSM := bot.NewRegistrationFSM(b, registry, postSync, log.With("registration"))
	exporter := bot.NewParticipantExporter(b, registry, log.With("export"))
	log.Info("Dialogue engines created")

	// Create bot handler
	handler := bot.NewBotHandler(
		cfg.AdminID,
		b,
		dialogs,
		registry,
		deepLinkService,
		postSync,
		broadcaster,
		creationFSM,
		buttonEditor,
		registrationFSM,
		exporter,
		log.With("handler"),
	)
	log.Info("Bot handler created")

	// Register command handlers
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, handler.HandleStart)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/admin", tgbot.MatchTypeExact, handler.HandleAdmin)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/new_contest", tgbot.MatchTypeExact, handler.HandleNewContest)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/list_contests", tgbot.MatchTypeExact, handler.HandleListContests)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/registrations", tgbot.MatchTypePrefix, handler.HandleRegistrations)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/edit_buttons", tgbot.MatchTypePrefix, handler.HandleEditButtons)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/set_deadline", tgbot.MatchTypePrefix, handler.HandleSetDeadline)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/broadcast", tgbot.MatchTypePrefix, handler.HandleBroadcast)

	// Register callback query handler
	b.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, "", tgbot.MatchTypePrefix, handler.HandleCallback)

	// Register message handler for conversation flows
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypePrefix, handler.HandleMessage)

	log.Info("Command handlers registered")

	// Start update delivery: webhook when configured, long polling otherwise
	var webhookHandler http.Handler
	if cfg.WebhookURL != "" {
		_, err := b.SetWebhook(ctx, &tgbot.SetWebhookParams{
			URL: cfg.WebhookURL + web.WebhookPath,
		})
		if err != nil {
			log.Error("Failed to set webhook", "error", err)
			os.Exit(1)
		}
		webhookHandler = b.WebhookHandler()
		go func() {
			log.Info("Starting webhook processing", "url", cfg.WebhookURL+web.WebhookPath)
			b.StartWebhook(ctx)
		}()
	} else {
		go func() {
			log.Info("Starting bot polling")
			b.Start(ctx)
		}()
	}

	// Start HTTP server: status page, metrics, webhook endpoint
	statusServer := web.NewServer(botInfo.FirstName, botInfo.Username, cfg.TelegramToken, cfg.ChannelID, webhookHandler, log.With("web"))
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: statusServer.Router(),
	}
	go func() {
		log.Info("Starting HTTP server", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server stopped", "error", err)
		}
	}()

	log.Info("Bot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("Shutdown signal received, stopping bot...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	log.Info("Bot stopped successfully")
}
