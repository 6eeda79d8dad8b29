package dashboard

// Read-only dashboard rendering: wallet snapshots, token stats and
// top-holders tables for the bot's display commands. No alert logic
// lives here.

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"vybe-pulse/internal/clients_api/vybe"
	"vybe-pulse/internal/tracker"
)

// ShortAddr abbreviates a base58 address for display.
func ShortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// FormatUSD renders a USD amount with thousands separators.
func FormatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	out := "$" + b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatWalletSnapshot builds the HTML summary shown when a user
// starts tracking a wallet or opens it from the dashboard.
func FormatWalletSnapshot(address string, balances *vybe.WalletBalances) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💼 <b>Wallet</b> <code>%s</code>\n\n", html.EscapeString(address))

	total := parseFloat(balances.TotalTokenValueUSD)
	fmt.Fprintf(&b, "💰 Total value: %s\n", FormatUSD(total))
	if change := parseFloat(balances.TotalTokenValueUSD1dChange); change != 0 {
		arrow := "📈"
		if change < 0 {
			arrow = "📉"
		}
		fmt.Fprintf(&b, "%s 24h change: %s\n", arrow, FormatUSD(change))
	}
	fmt.Fprintf(&b, "🪙 Tokens held: %d\n", balances.TotalTokenCount)

	if len(balances.Tokens) == 0 {
		b.WriteString("\nNo token balances found (wallet may only hold SOL).\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, t := range balances.Tokens {
		symbol := t.Symbol
		if symbol == "" {
			symbol = "?"
		}
		fmt.Fprintf(&b, "• <b>%s</b> — %s (%s)\n",
			html.EscapeString(symbol),
			html.EscapeString(t.Amount),
			FormatUSD(parseFloat(t.ValueUSD)))
	}
	return b.String()
}

// FormatTokenStats builds the HTML stats block for a token.
func FormatTokenStats(stats *tracker.TokenStats) string {
	trend := "➡️"
	if stats.PriceChange24h > 0 {
		trend = "📈"
	} else if stats.PriceChange24h < 0 {
		trend = "📉"
	}

	name := stats.Name
	if name == "" {
		name = ShortAddr(stats.Mint)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b> (%s)\n\n", html.EscapeString(name), html.EscapeString(stats.Symbol))
	fmt.Fprintf(&b, "💲 Price: %s\n", FormatUSD(stats.PriceUSD))
	fmt.Fprintf(&b, "%s 24h change: %.2f%%\n", trend, stats.PriceChange24h)
	if stats.Volume24hUSD > 0 {
		fmt.Fprintf(&b, "🔄 24h volume: %s\n", FormatUSD(stats.Volume24hUSD))
	}
	if stats.MarketCapUSD > 0 {
		fmt.Fprintf(&b, "🏦 Market cap: %s\n", FormatUSD(stats.MarketCapUSD))
	}
	return b.String()
}

// FormatTopHolders builds the HTML top-holders table.
func FormatTopHolders(symbol string, holders []vybe.TokenHolder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 <b>Top %s holders</b>\n\n", html.EscapeString(symbol))
	for _, h := range holders {
		name := h.OwnerName
		if name == "" {
			name = ShortAddr(h.OwnerAddress)
		}
		fmt.Fprintf(&b, "%d. <code>%s</code> — %s (%.2f%% of supply)\n",
			h.Rank,
			html.EscapeString(name),
			FormatUSD(parseFloat(h.ValueUSD)),
			h.PercentageOfSupply)
	}
	if len(holders) == 0 {
		b.WriteString("No holder data available.\n")
	}
	return b.String()
}
