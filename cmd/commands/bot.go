package commands

// Command to run the full bot (Telegram front-end + poll scheduler)
// Initializes configuration, persisted user state, and the Vybe client
// Implements graceful shutdown for proper termination

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vybe-pulse/internal/clients_api/vybe"
	"vybe-pulse/internal/infra/config"
	storage "vybe-pulse/internal/infra/fs"
	logging "vybe-pulse/internal/infra/log"
	"vybe-pulse/internal/tracker"
	"vybe-pulse/tgbot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the full bot (Telegram commands + notification cycles)",
	Long:  `Run the complete bot: the Telegram command handler plus the wallet tracking and whale alert notification cycles.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("no bot token provided: TELEGRAM_BOT_TOKEN is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", bot.Self.UserName))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	registry := tracker.NewRegistry(storage.NewDashboardStore(cfg.App.DataDir))
	seen := tracker.NewSeenStore()

	client := vybe.NewClient(vybe.Options{
		BaseURL:        cfg.Vybe.BaseURL,
		APIKey:         cfg.Vybe.APIKey,
		RequestTimeout: time.Duration(cfg.Vybe.RequestTimeout) * time.Second,
		MaxRetries:     cfg.Vybe.MaxRetries,
		WhaleLookback:  cfg.WhaleInterval(),
	})

	scheduler := tracker.NewScheduler(tracker.SchedulerConfig{
		WalletInterval:     cfg.WalletInterval(),
		WhaleInterval:      cfg.WhaleInterval(),
		FetchConcurrency:   cfg.Tracker.FetchConcurrency,
		Retention:          time.Duration(cfg.Tracker.SeenRetentionHours) * time.Hour,
		WalletCycleEnabled: cfg.Tracker.WalletCycleEnabled,
		WhaleCycleEnabled:  cfg.Tracker.WhaleCycleEnabled,
	}, client, registry, seen, tgbot.NewSink(bot))

	handler := tgbot.NewHandler(bot, registry, client, cfg.App.DataDir)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Run(ctx)
	}()

	logging.LogSuccess("Bot is running",
		zap.Duration("walletInterval", cfg.WalletInterval()),
		zap.Duration("whaleInterval", cfg.WhaleInterval()))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("Bot stopped gracefully")
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for workers to stop, forcing shutdown")
	}

	return nil
}
