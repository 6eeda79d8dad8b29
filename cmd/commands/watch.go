package commands

// Command to run the notification cycles headless (no Telegram)
// Intents are written to the log instead of delivered
// Useful for verifying provider connectivity and cycle behavior

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vybe-pulse/internal/clients_api/vybe"
	"vybe-pulse/internal/infra/config"
	storage "vybe-pulse/internal/infra/fs"
	logging "vybe-pulse/internal/infra/log"
	"vybe-pulse/internal/tracker"
	"vybe-pulse/tgbot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run notification cycles headless (log-only delivery)",
	Long:  `Run the wallet tracking and whale alert cycles without a Telegram connection. Notification intents are logged instead of sent.`,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	registry := tracker.NewRegistry(storage.NewDashboardStore(cfg.App.DataDir))

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
	}, client, registry, tracker.NewSeenStore(), tgbot.LogSink{})

	logging.LogSuccess("Headless watcher is running",
		zap.Duration("walletInterval", cfg.WalletInterval()),
		zap.Duration("whaleInterval", cfg.WhaleInterval()))

	scheduler.Run(ctx)

	logging.LogSuccess("Headless watcher stopped")
	return nil
}
