package notify

import (
	"fmt"
	"strings"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

// RenderTransfer builds the HTML message body for a transfer notification.
func RenderTransfer(c model.NotificationCandidate) string {
	var b strings.Builder

	switch {
	case c.IsAirdrop:
		b.WriteString("🪂 <b>Airdrop detected</b>\n")
	case c.Direction == model.DirectionIncoming:
		b.WriteString("📥 <b>Incoming transfer</b>\n")
	default:
		b.WriteString("📤 <b>Outgoing transfer</b>\n")
	}

	fmt.Fprintf(&b, "Chain: <b>%s</b>\n", c.Chain)
	fmt.Fprintf(&b, "Wallet: <code>%s</code>\n", c.TriggeredAddress)

	if c.HasAmount {
		fmt.Fprintf(&b, "Amount: <b>%s %s</b>", c.Amount.String(), c.Symbol)
		if c.ValueUSD > 0 {
			fmt.Fprintf(&b, " (≈$%.2f)", c.ValueUSD)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Asset: <b>%s</b> (NFT)\n", c.Symbol)
	}

	if c.Direction == model.DirectionIncoming {
		fmt.Fprintf(&b, "From: <code>%s</code>\n", c.From)
	} else {
		fmt.Fprintf(&b, "To: <code>%s</code>\n", c.To)
	}

	fmt.Fprintf(&b, "<a href=\"%s\">View on explorer</a>", c.ExplorerURL)
	return b.String()
}

// RenderAlert builds the HTML message body for a triggered price alert.
func RenderAlert(a model.PriceAlert, currentPrice float64) string {
	var b strings.Builder

	b.WriteString("🚨 <b>Price alert triggered</b>\n")
	fmt.Fprintf(&b, "Token: <b>%s</b> on %s\n", symbolOrAddress(a), a.Chain)
	fmt.Fprintf(&b, "Current price: <b>$%s</b>\n", formatPrice(currentPrice))

	switch a.Kind {
	case model.AlertAbove:
		if a.TargetPrice != nil {
			fmt.Fprintf(&b, "Condition: price ≥ $%s", formatPrice(*a.TargetPrice))
		}
	case model.AlertBelow:
		if a.TargetPrice != nil {
			fmt.Fprintf(&b, "Condition: price ≤ $%s", formatPrice(*a.TargetPrice))
		}
	case model.AlertPercent:
		if a.TargetPercentage != nil && a.CreatedPrice > 0 {
			pct := (currentPrice - a.CreatedPrice) / a.CreatedPrice * 100
			fmt.Fprintf(&b, "Change: %+.2f%% since creation (target %+.2f%%)", pct, *a.TargetPercentage)
		}
	}
	return b.String()
}

func symbolOrAddress(a model.PriceAlert) string {
	if a.TokenSymbol != "" {
		return a.TokenSymbol
	}
	return a.TokenAddress
}

// formatPrice keeps sub-cent tokens readable without printing 8 decimals on
// everything.
func formatPrice(p float64) string {
	if p >= 0.01 {
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", p), "0"), ".")
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", p), "0"), ".")
}
