package tgbot

// Telegram message formatting for notification intents.

import (
	"fmt"
	"html"
	"strings"

	"vybe-pulse/internal/features/dashboard"
	"vybe-pulse/internal/tracker"
)

func solscanTxLink(signature string) string {
	return "https://solscan.io/tx/" + signature
}

func shortSig(sig string) string {
	if len(sig) <= 16 {
		return sig
	}
	return sig[:8] + "..." + sig[len(sig)-8:]
}

// tokenLabel prefers the symbol and falls back to a shortened mint.
func tokenLabel(ev tracker.TransactionEvent) string {
	if ev.TokenSymbol != "" {
		return ev.TokenSymbol
	}
	if ev.TokenMint != "" {
		return dashboard.ShortAddr(ev.TokenMint)
	}
	return "SOL"
}

func formatWalletTransfer(ev tracker.TransactionEvent) string {
	dirEmoji, dirLabel := "📥", "Received"
	if ev.Direction == tracker.DirectionOut {
		dirEmoji, dirLabel = "📤", "Sent"
	}

	var b strings.Builder
	b.WriteString("🚨 <b>New Transaction Detected!</b>\n\n")
	fmt.Fprintf(&b, "💼 Wallet: <code>%s</code>\n", html.EscapeString(ev.WalletOrMint))
	fmt.Fprintf(&b, "%s %s %s (%s)\n", dirEmoji, dirLabel, dashboard.FormatUSD(ev.AmountUSD), html.EscapeString(tokenLabel(ev)))
	fmt.Fprintf(&b, "🤝 Counterparty: <code>%s</code>\n", html.EscapeString(dashboard.ShortAddr(ev.Counterparty)))
	fmt.Fprintf(&b, "⏰ %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "🔗 <a href=\"%s\">%s</a>", solscanTxLink(ev.Signature), shortSig(ev.Signature))
	return b.String()
}

func formatWhaleAlert(ev tracker.TransactionEvent) string {
	var b strings.Builder
	b.WriteString("🐋 <b>Whale Alert!</b> 🚨\n\n")
	fmt.Fprintf(&b, "💰 %s moved in <b>%s</b>\n", dashboard.FormatUSD(ev.AmountUSD), html.EscapeString(tokenLabel(ev)))
	fmt.Fprintf(&b, "⏰ %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "🔗 <a href=\"%s\">%s</a>", solscanTxLink(ev.Signature), shortSig(ev.Signature))
	return b.String()
}
