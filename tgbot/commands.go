package tgbot

// Inbound Telegram command handling. Every command is synchronous and
// scoped to registry state or a passthrough provider read.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vybe-pulse/internal/clients_api/vybe"
	"vybe-pulse/internal/features/dashboard"
	logging "vybe-pulse/internal/infra/log"
	"vybe-pulse/internal/tracker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const commandTimeout = 30 * time.Second

const helpText = `🤖 <b>Vybe Pulse</b>

/track &lt;address&gt; — track a wallet's transfers
/untrack &lt;address&gt; — stop tracking a wallet
/wallets — list your tracked wallets
/balance &lt;address&gt; — wallet balance snapshot

/whale on|off — toggle whale alerts
/threshold &lt;usd&gt; — set your whale alert threshold
/tokens &lt;mint,mint,...&gt; — choose tokens for whale alerts

/stats &lt;mint&gt; — token stats
/holders &lt;mint&gt; — top holders table and chart`

// Handler routes user commands to the registry and the provider.
type Handler struct {
	bot      *tgbotapi.BotAPI
	registry *tracker.Registry
	client   *vybe.Client
	dataDir  string
}

func NewHandler(bot *tgbotapi.BotAPI, registry *tracker.Registry, client *vybe.Client, dataDir string) *Handler {
	return &Handler{bot: bot, registry: registry, client: client, dataDir: dataDir}
}

// Run consumes updates until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	logging.LogInfo("Starting command handler", zap.String("username", h.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		h.bot.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			h.handleCallback(update.CallbackQuery)
		case update.Message != nil && update.Message.IsCommand():
			h.handleCommand(ctx, update.Message)
		}
	}
	logging.LogInfo("Command handler stopped")
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	userID := msg.Chat.ID

	logging.LogDebug("Received command",
		zap.String("command", command),
		zap.String("args", args),
		zap.Int64("userID", userID))

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch command {
	case "start", "help":
		h.replyHTML(msg, helpText)
	case "track":
		h.handleTrack(ctx, msg, args)
	case "untrack":
		h.handleUntrack(msg, args)
	case "wallets":
		h.handleWallets(msg)
	case "balance":
		h.handleBalance(ctx, msg, args)
	case "whale":
		h.handleWhaleToggle(msg, args)
	case "threshold":
		h.handleThreshold(msg, args)
	case "tokens":
		h.handleTokens(msg, args)
	case "stats":
		h.handleStats(ctx, msg, args)
	case "holders":
		h.handleHolders(ctx, msg, args)
	}
}

func (h *Handler) handleTrack(ctx context.Context, msg *tgbotapi.Message, addr string) {
	if addr == "" {
		h.reply(msg, "Usage: /track {address}\n\nExample: /track 3qArN...")
		return
	}
	if err := h.registry.AddWallet(msg.Chat.ID, addr); err != nil {
		if errors.Is(err, tracker.ErrInvalidAddress) {
			h.reply(msg, "❌ That doesn't look like a Solana wallet address.")
			return
		}
		logging.LogError("Failed to add wallet", zap.Int64("userID", msg.Chat.ID), zap.Error(err))
		h.reply(msg, "❌ Could not track that wallet right now.")
		return
	}

	// Balance snapshot is best-effort: tracking works even when the
	// provider is down.
	balances, err := h.client.GetWalletBalances(ctx, addr)
	if err != nil {
		logging.LogWarn("Failed to fetch balance snapshot", zap.String("address", addr), zap.Error(err))
		h.replyHTML(msg, fmt.Sprintf("✅ Now tracking <code>%s</code>.\n\n(Balance snapshot unavailable right now.)", addr))
		return
	}
	h.replyHTML(msg, "✅ <b>Successfully started tracking!</b>\n\n"+dashboard.FormatWalletSnapshot(addr, balances))
}

func (h *Handler) handleUntrack(msg *tgbotapi.Message, addr string) {
	if addr == "" {
		h.reply(msg, "Usage: /untrack {address}")
		return
	}
	h.registry.RemoveWallet(msg.Chat.ID, addr)
	h.replyHTML(msg, fmt.Sprintf("🗑 No longer tracking <code>%s</code>.", addr))
}

func (h *Handler) handleWallets(msg *tgbotapi.Message) {
	subs := h.registry.ListWallets(msg.Chat.ID)
	if len(subs) == 0 {
		h.reply(msg, "You are not tracking any wallets yet. Use /track {address}.")
		return
	}
	var b strings.Builder
	b.WriteString("👀 <b>Tracked wallets</b>\n\n")
	for i, sub := range subs {
		fmt.Fprintf(&b, "%d. <code>%s</code> (since %s)\n", i+1, sub.Address, sub.CreatedAt.Format("2006-01-02"))
	}
	h.replyHTML(msg, b.String())
}

func (h *Handler) handleBalance(ctx context.Context, msg *tgbotapi.Message, addr string) {
	if !tracker.ValidAddress(addr) {
		h.reply(msg, "Usage: /balance {address}")
		return
	}
	balances, err := h.client.GetWalletBalances(ctx, addr)
	if err != nil {
		logging.LogWarn("Failed to fetch wallet balances", zap.String("address", addr), zap.Error(err))
		h.reply(msg, "❌ Couldn't fetch wallet balances right now. Please try again.")
		return
	}
	h.replyHTML(msg, dashboard.FormatWalletSnapshot(addr, balances))
}

func (h *Handler) handleWhaleToggle(msg *tgbotapi.Message, args string) {
	var enabled bool
	switch strings.ToLower(args) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		h.reply(msg, "Usage: /whale on|off")
		return
	}

	cfg := h.registry.WhaleConfig(msg.Chat.ID)
	if err := h.registry.SetWhaleConfig(msg.Chat.ID, cfg.TokenMints, cfg.ThresholdUSD, enabled); err != nil {
		logging.LogError("Failed to toggle whale alerts", zap.Int64("userID", msg.Chat.ID), zap.Error(err))
		h.reply(msg, "❌ Could not update your whale alert settings.")
		return
	}
	if enabled {
		if len(cfg.TokenMints) == 0 {
			h.replyHTML(msg, fmt.Sprintf("🐳 Whale alerts enabled (threshold %s).\n\nAdd tokens with /tokens &lt;mint,...&gt; to start receiving alerts.", dashboard.FormatUSD(cfg.ThresholdUSD)))
		} else {
			h.replyHTML(msg, fmt.Sprintf("🐳 Whale alerts enabled for %d token(s), threshold %s.", len(cfg.TokenMints), dashboard.FormatUSD(cfg.ThresholdUSD)))
		}
	} else {
		h.reply(msg, "🐳 Whale alerts disabled.")
	}
}

func (h *Handler) handleThreshold(msg *tgbotapi.Message, args string) {
	if args == "" {
		cfg := h.registry.WhaleConfig(msg.Chat.ID)
		h.replyHTML(msg, fmt.Sprintf("Current whale threshold: %s\n\nUsage: /threshold 10000", dashboard.FormatUSD(cfg.ThresholdUSD)))
		return
	}
	value, err := strconv.ParseFloat(strings.TrimPrefix(args, "$"), 64)
	if err != nil || value < 0 {
		h.reply(msg, "💰 Please enter a non-negative USD amount, e.g. /threshold 10000")
		return
	}

	cfg := h.registry.WhaleConfig(msg.Chat.ID)
	if err := h.registry.SetWhaleConfig(msg.Chat.ID, cfg.TokenMints, value, cfg.Enabled); err != nil {
		logging.LogError("Failed to set whale threshold", zap.Int64("userID", msg.Chat.ID), zap.Error(err))
		h.reply(msg, "❌ Could not update your threshold.")
		return
	}
	h.replyHTML(msg, fmt.Sprintf("💰 Whale threshold set to %s.", dashboard.FormatUSD(value)))
}

func (h *Handler) handleTokens(msg *tgbotapi.Message, args string) {
	if args == "" {
		h.reply(msg, "Usage: /tokens {mint,mint,...}")
		return
	}
	var mints []string
	for _, raw := range strings.Split(args, ",") {
		mint := strings.TrimSpace(raw)
		if mint == "" {
			continue
		}
		if !tracker.ValidAddress(mint) {
			h.reply(msg, fmt.Sprintf("❌ %q is not a valid token mint address.", mint))
			return
		}
		mints = append(mints, mint)
	}

	cfg := h.registry.WhaleConfig(msg.Chat.ID)
	if err := h.registry.SetWhaleConfig(msg.Chat.ID, mints, cfg.ThresholdUSD, cfg.Enabled); err != nil {
		logging.LogError("Failed to set whale tokens", zap.Int64("userID", msg.Chat.ID), zap.Error(err))
		h.reply(msg, "❌ Could not update your token list.")
		return
	}
	suffix := ""
	if !cfg.Enabled {
		suffix = "\n\nWhale alerts are currently off; enable them with /whale on."
	}
	h.reply(msg, fmt.Sprintf("🪙 Watching %d token(s) for whale activity.%s", len(mints), suffix))
}

func (h *Handler) handleStats(ctx context.Context, msg *tgbotapi.Message, mint string) {
	if !tracker.ValidAddress(mint) {
		h.reply(msg, "Usage: /stats {mint address}")
		return
	}
	stats, err := h.client.GetTokenStats(ctx, mint)
	if err != nil {
		logging.LogWarn("Failed to fetch token stats", zap.String("mint", mint), zap.Error(err))
		h.reply(msg, "❌ Couldn't fetch token stats right now. Please try again.")
		return
	}
	h.replyHTML(msg, dashboard.FormatTokenStats(stats))
}

func (h *Handler) handleHolders(ctx context.Context, msg *tgbotapi.Message, mint string) {
	if !tracker.ValidAddress(mint) {
		h.reply(msg, "Usage: /holders {mint address}")
		return
	}
	holders, err := h.client.GetTopTokenHolders(ctx, mint, 5)
	if err != nil {
		logging.LogWarn("Failed to fetch top holders", zap.String("mint", mint), zap.Error(err))
		h.reply(msg, "❌ Couldn't fetch holder data right now. Please try again.")
		return
	}

	symbol := dashboard.ShortAddr(mint)
	if stats, statsErr := h.client.GetTokenStats(ctx, mint); statsErr == nil && stats.Symbol != "" {
		symbol = stats.Symbol
	}

	chartPath, err := dashboard.RenderHoldersChart(h.dataDir, symbol, holders)
	if err != nil {
		logging.LogWarn("Failed to render holders chart", zap.String("mint", mint), zap.Error(err))
		h.replyHTML(msg, dashboard.FormatTopHolders(symbol, holders))
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(chartPath))
	photo.Caption = dashboard.FormatTopHolders(symbol, holders)
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(photo); err != nil {
		logging.LogError("Failed to send holders chart", zap.Error(err))
	}
}

func (h *Handler) handleCallback(query *tgbotapi.CallbackQuery) {
	data := query.Data
	if addr, ok := strings.CutPrefix(data, "remove_wallet_"); ok {
		h.registry.RemoveWallet(query.From.ID, addr)
		h.bot.Request(tgbotapi.NewCallback(query.ID, "Wallet removed"))
		confirm := tgbotapi.NewMessage(query.From.ID, fmt.Sprintf("🗑 No longer tracking %s.", dashboard.ShortAddr(addr)))
		if _, err := h.bot.Send(confirm); err != nil {
			logging.LogError("Failed to send removal confirmation", zap.Error(err))
		}
		return
	}
	h.bot.Request(tgbotapi.NewCallback(query.ID, ""))
}

func (h *Handler) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := h.bot.Send(out); err != nil {
		logging.LogError("Failed to send reply", zap.Error(err))
	}
}

func (h *Handler) replyHTML(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	if _, err := h.bot.Send(out); err != nil {
		logging.LogError("Failed to send reply", zap.Error(err))
	}
}
