package tgbot

// Telegram delivery of notification intents. The core only guarantees
// selection and ordering; a failed send is logged and dropped here,
// never re-emitted (the event is already marked seen upstream).

import (
	"context"

	logging "vybe-pulse/internal/infra/log"
	"vybe-pulse/internal/tracker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sink delivers intents as Telegram messages to the subscribing
// user's private chat.
type Sink struct {
	bot *tgbotapi.BotAPI
}

var _ tracker.Sink = (*Sink)(nil)

func NewSink(bot *tgbotapi.BotAPI) *Sink {
	return &Sink{bot: bot}
}

func (s *Sink) Deliver(ctx context.Context, intent tracker.NotificationIntent) {
	if ctx.Err() != nil {
		logging.LogWarn("Dropping intent: shutdown in progress",
			zap.Int64("userID", intent.UserID),
			zap.String("eventID", intent.Event.EventID))
		return
	}

	var text string
	switch intent.Kind {
	case tracker.KindWhaleAlert:
		text = formatWhaleAlert(intent.Event)
	default:
		text = formatWalletTransfer(intent.Event)
	}

	msg := tgbotapi.NewMessage(intent.UserID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = intentKeyboard(intent)

	if _, err := s.bot.Send(msg); err != nil {
		logging.LogError("Failed to send notification",
			zap.Int64("userID", intent.UserID),
			zap.String("kind", string(intent.Kind)),
			zap.String("eventID", intent.Event.EventID),
			zap.Error(err))
		return
	}
	logging.LogInfo("Sent notification",
		zap.Int64("userID", intent.UserID),
		zap.String("kind", string(intent.Kind)),
		zap.String("eventID", intent.Event.EventID))
}

func intentKeyboard(intent tracker.NotificationIntent) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("View on Solscan", solscanTxLink(intent.Event.Signature)),
		),
	}
	if intent.Kind == tracker.KindWalletTransfer {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Remove wallet 🗑", "remove_wallet_"+intent.Event.WalletOrMint),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// LogSink writes intents to the log instead of Telegram. Used by the
// headless watch command and in tests.
type LogSink struct{}

var _ tracker.Sink = LogSink{}

func (LogSink) Deliver(_ context.Context, intent tracker.NotificationIntent) {
	logging.LogSuccess("Notification intent",
		zap.Int64("userID", intent.UserID),
		zap.String("kind", string(intent.Kind)),
		zap.String("eventID", intent.Event.EventID),
		zap.Float64("amountUsd", intent.Event.AmountUSD),
		zap.Time("timestamp", intent.Event.Timestamp))
}
