// Package bot implements the command surface. A single router goroutine
// consumes the messenger update feed, executes commands against the stores
// and services, and enqueues replies on the shared dispatcher.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/gas"
	"github.com/AsetGithub/evm-lens-bot/internal/notify"
	"github.com/AsetGithub/evm-lens-bot/internal/portfolio"
	"github.com/AsetGithub/evm-lens-bot/internal/registry"
	"github.com/AsetGithub/evm-lens-bot/internal/store"
)

// zeroAddress stands in for the native asset in price alerts.
const zeroAddress = "0x0000000000000000000000000000000000000000"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// UpdateSource is the messenger feed the router consumes.
type UpdateSource interface {
	Updates() tgbotapi.UpdatesChannel
	StopUpdates()
}

// Enqueuer is the dispatcher surface the router replies through.
type Enqueuer interface {
	Enqueue(msg notify.Message) bool
}

// Pricer resolves current prices for alert creation baselines.
type Pricer interface {
	NativePrice(ctx context.Context, chain model.Chain) (float64, error)
	TokenPrice(ctx context.Context, chain model.Chain, tokenAddress string) (float64, error)
}

// PortfolioReader is the slice of the portfolio service the router needs.
type PortfolioReader interface {
	TokenReport(ctx context.Context, chain model.Chain, address string) (*portfolio.TokenReport, error)
	NFTReport(ctx context.Context, chain model.Chain, address string) (*portfolio.NFTReport, error)
}

// GasReader is the slice of the gas tracker the router needs.
type GasReader interface {
	Current(ctx context.Context, chain model.Chain) (gas.Reading, error)
}

type Router struct {
	reg       *registry.Registry
	wallets   store.WalletRepository
	settings  store.SettingsRepository
	alerts    store.AlertRepository
	prices    Pricer
	portfolio PortfolioReader
	gas       GasReader
	out       Enqueuer
	updates   UpdateSource
	log       *slog.Logger
}

func NewRouter(
	reg *registry.Registry,
	wallets store.WalletRepository,
	settings store.SettingsRepository,
	alerts store.AlertRepository,
	prices Pricer,
	pf PortfolioReader,
	gr GasReader,
	out Enqueuer,
	updates UpdateSource,
	log *slog.Logger,
) *Router {
	return &Router{
		reg:       reg,
		wallets:   wallets,
		settings:  settings,
		alerts:    alerts,
		prices:    prices,
		portfolio: pf,
		gas:       gr,
		out:       out,
		updates:   updates,
		log:       log.With("component", "bot"),
	}
}

// Run consumes updates until ctx is cancelled. Command execution is
// sequential; replies go out through the dispatcher like every other message.
func (r *Router) Run(ctx context.Context) error {
	feed := r.updates.Updates()
	defer r.updates.StopUpdates()

	r.log.Info("command router starting")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-feed:
			if !ok {
				return nil
			}
			if u.Message == nil || !u.Message.IsCommand() {
				continue
			}
			userID := u.Message.Chat.ID
			cmd := u.Message.Command()
			args := strings.Fields(u.Message.CommandArguments())

			reply := r.Handle(ctx, userID, cmd, args)
			if reply != "" {
				r.out.Enqueue(notify.Message{UserID: userID, Text: reply, Kind: notify.KindReply})
			}
		}
	}
}

// Handle executes one command and returns the reply text. Unknown commands
// and bad arguments come back as user-facing usage messages.
func (r *Router) Handle(ctx context.Context, userID int64, cmd string, args []string) string {
	switch cmd {
	case "start", "help":
		return helpText
	case "watch":
		return r.handleWatch(ctx, userID, args)
	case "wallets":
		return r.handleWallets(ctx, userID)
	case "unwatch":
		return r.handleUnwatch(ctx, userID, args)
	case "settings":
		return r.handleSettings(ctx, userID)
	case "minvalue":
		return r.handleMinValue(ctx, userID, args)
	case "airdrops":
		return r.handleAirdrops(ctx, userID, args)
	case "alert":
		return r.handleAlertCreate(ctx, userID, args)
	case "alerts":
		return r.handleAlertList(ctx, userID)
	case "delalert":
		return r.handleAlertDelete(ctx, userID, args)
	case "portfolio":
		return r.handlePortfolio(ctx, userID, args)
	case "nfts":
		return r.handleNFTs(ctx, userID, args)
	case "gas":
		return r.handleGas(ctx, userID, args)
	default:
		return "Unknown command. Send /help for the command list."
	}
}

const helpText = `<b>Wallet monitor</b>
/watch &lt;chain&gt; &lt;address&gt; [alias] - watch a wallet
/wallets - list watched wallets
/unwatch &lt;n&gt; - stop watching wallet n

<b>Notifications</b>
/settings - show notification settings
/minvalue &lt;usd&gt; - hide transfers below this value (0 disables)
/airdrops on|off - toggle airdrop notifications

<b>Price alerts</b>
/alert &lt;chain&gt; &lt;token|native&gt; &lt;above|below|percent&gt; &lt;value&gt;
/alerts - list active alerts
/delalert &lt;n&gt; - remove alert n

<b>Queries</b>
/portfolio &lt;chain&gt; &lt;address&gt; - token balances
/nfts &lt;chain&gt; &lt;address&gt; - NFT holdings
/gas &lt;chain&gt; - current gas price`

func (r *Router) handleWatch(ctx context.Context, userID int64, args []string) string {
	if len(args) < 2 {
		return "Usage: /watch <chain> <address> [alias]"
	}
	desc, errMsg := r.chainArg(args[0])
	if errMsg != "" {
		return errMsg
	}
	address := strings.ToLower(args[1])
	if !addressPattern.MatchString(address) {
		return "That does not look like an EVM address (expected 0x + 40 hex characters)."
	}
	alias := ""
	if len(args) > 2 {
		alias = strings.Join(args[2:], " ")
	}

	sub := &model.WalletSubscription{
		ID:      uuid.New(),
		UserID:  userID,
		Chain:   desc.Chain,
		Address: address,
		Alias:   alias,
	}
	if err := r.wallets.Add(ctx, sub); err != nil {
		r.log.Error("watch failed", "user_id", userID, "chain", desc.Chain, "error", err)
		return "Could not save that wallet, please try again."
	}

	label := address
	if alias != "" {
		label = alias
	}
	return fmt.Sprintf("Watching <b>%s</b> on %s.\n<a href=\"%s/address/%s\">View on explorer</a>",
		label, desc.Chain, desc.ExplorerURL, address)
}

func (r *Router) handleWallets(ctx context.Context, userID int64) string {
	subs, err := r.wallets.ListByUser(ctx, userID)
	if err != nil {
		r.log.Error("wallet list failed", "user_id", userID, "error", err)
		return "Could not load your wallets, please try again."
	}
	if len(subs) == 0 {
		return "You are not watching any wallets yet. Add one with /watch."
	}

	var b strings.Builder
	b.WriteString("<b>Watched wallets</b>\n")
	for i, s := range subs {
		fmt.Fprintf(&b, "%d. %s <code>%s</code>", i+1, s.Chain, s.Address)
		if s.Alias != "" {
			fmt.Fprintf(&b, " (%s)", s.Alias)
		}
		b.WriteString("\n")
	}
	b.WriteString("Remove one with /unwatch <n>.")
	return b.String()
}

func (r *Router) handleUnwatch(ctx context.Context, userID int64, args []string) string {
	subs, err := r.wallets.ListByUser(ctx, userID)
	if err != nil {
		r.log.Error("wallet list failed", "user_id", userID, "error", err)
		return "Could not load your wallets, please try again."
	}
	idx, errMsg := indexArg(args, len(subs), "/unwatch")
	if errMsg != "" {
		return errMsg
	}

	target := subs[idx]
	removed, err := r.wallets.RemoveByID(ctx, target.ID, userID)
	if err != nil {
		r.log.Error("unwatch failed", "user_id", userID, "id", target.ID, "error", err)
		return "Could not remove that wallet, please try again."
	}
	if !removed {
		return "That wallet is already gone."
	}
	return fmt.Sprintf("Stopped watching <code>%s</code> on %s.", target.Address, target.Chain)
}

func (r *Router) handleSettings(ctx context.Context, userID int64) string {
	s, err := r.settings.Get(ctx, userID)
	if err != nil {
		r.log.Error("settings load failed", "user_id", userID, "error", err)
		return "Could not load your settings, please try again."
	}

	minValue := "off"
	if s.MinValueUSD > 0 {
		minValue = fmt.Sprintf("$%.2f", s.MinValueUSD)
	}
	airdrops := "on"
	if !s.NotifyOnAirdrop {
		airdrops = "off"
	}
	return fmt.Sprintf("<b>Settings</b>\nMinimum value filter: %s\nAirdrop notifications: %s", minValue, airdrops)
}

func (r *Router) handleMinValue(ctx context.Context, userID int64, args []string) string {
	if len(args) != 1 {
		return "Usage: /minvalue <usd>, e.g. /minvalue 50. Use 0 to disable."
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < 0 {
		return "The minimum value must be a non-negative number."
	}

	s, err := r.settings.Get(ctx, userID)
	if err != nil {
		r.log.Error("settings load failed", "user_id", userID, "error", err)
		return "Could not load your settings, please try again."
	}
	s.MinValueUSD = v
	if err := r.settings.Update(ctx, s); err != nil {
		r.log.Error("settings update failed", "user_id", userID, "error", err)
		return "Could not save your settings, please try again."
	}

	if v == 0 {
		return "Minimum value filter disabled."
	}
	return fmt.Sprintf("Transfers below $%.2f will be skipped.", v)
}

func (r *Router) handleAirdrops(ctx context.Context, userID int64, args []string) string {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return "Usage: /airdrops on|off"
	}

	s, err := r.settings.Get(ctx, userID)
	if err != nil {
		r.log.Error("settings load failed", "user_id", userID, "error", err)
		return "Could not load your settings, please try again."
	}
	s.NotifyOnAirdrop = args[0] == "on"
	if err := r.settings.Update(ctx, s); err != nil {
		r.log.Error("settings update failed", "user_id", userID, "error", err)
		return "Could not save your settings, please try again."
	}

	if s.NotifyOnAirdrop {
		return "Airdrop notifications enabled."
	}
	return "Airdrop notifications disabled."
}

func (r *Router) handleAlertCreate(ctx context.Context, userID int64, args []string) string {
	if len(args) != 4 {
		return "Usage: /alert <chain> <token|native> <above|below|percent> <value>\ne.g. /alert ethereum native above 4000"
	}
	desc, errMsg := r.chainArg(args[0])
	if errMsg != "" {
		return errMsg
	}

	token := strings.ToLower(args[1])
	symbol := ""
	if token == "native" {
		token = zeroAddress
		symbol = desc.NativeSymbol
	} else if !addressPattern.MatchString(token) {
		return "The token must be a 0x contract address or the word \"native\"."
	}

	var kind model.AlertKind
	switch args[2] {
	case "above":
		kind = model.AlertAbove
	case "below":
		kind = model.AlertBelow
	case "percent":
		kind = model.AlertPercent
	default:
		return "The alert type must be above, below or percent."
	}

	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return "The target must be a number (a price in USD, or a signed percentage)."
	}
	if kind != model.AlertPercent && value <= 0 {
		return "The target price must be positive."
	}
	if kind == model.AlertPercent && value == 0 {
		return "The target percentage must be non-zero, e.g. 10 or -5."
	}

	// The creation-time price is the baseline for percent alerts and keeps
	// the confirmation honest for the others.
	current, err := r.currentPrice(ctx, desc.Chain, token)
	if err != nil {
		r.log.Warn("alert baseline price unavailable", "chain", desc.Chain, "token", token, "error", err)
		return "Could not fetch the current price for that token, please try again later."
	}

	alert := &model.PriceAlert{
		ID:           uuid.New(),
		UserID:       userID,
		Chain:        desc.Chain,
		TokenAddress: token,
		TokenSymbol:  symbol,
		Kind:         kind,
		CreatedPrice: current,
		IsActive:     true,
	}
	if kind == model.AlertPercent {
		alert.TargetPercentage = &value
	} else {
		alert.TargetPrice = &value
	}

	if err := r.alerts.Create(ctx, alert); err != nil {
		r.log.Error("alert create failed", "user_id", userID, "chain", desc.Chain, "error", err)
		return "Could not save that alert, please try again."
	}
	return fmt.Sprintf("Alert created: %s\nCurrent price: $%s", describeAlert(*alert), formatUSD(current))
}

func (r *Router) handleAlertList(ctx context.Context, userID int64) string {
	alerts, err := r.alerts.ListActiveByUser(ctx, userID)
	if err != nil {
		r.log.Error("alert list failed", "user_id", userID, "error", err)
		return "Could not load your alerts, please try again."
	}
	if len(alerts) == 0 {
		return "You have no active alerts. Create one with /alert."
	}

	var b strings.Builder
	b.WriteString("<b>Active alerts</b>\n")
	for i, a := range alerts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, describeAlert(a))
	}
	b.WriteString("Remove one with /delalert <n>.")
	return b.String()
}

func (r *Router) handleAlertDelete(ctx context.Context, userID int64, args []string) string {
	alerts, err := r.alerts.ListActiveByUser(ctx, userID)
	if err != nil {
		r.log.Error("alert list failed", "user_id", userID, "error", err)
		return "Could not load your alerts, please try again."
	}
	idx, errMsg := indexArg(args, len(alerts), "/delalert")
	if errMsg != "" {
		return errMsg
	}

	target := alerts[idx]
	removed, err := r.alerts.Deactivate(ctx, target.ID, userID)
	if err != nil {
		r.log.Error("alert delete failed", "user_id", userID, "id", target.ID, "error", err)
		return "Could not remove that alert, please try again."
	}
	if !removed {
		return "That alert is already gone."
	}
	return fmt.Sprintf("Removed alert: %s", describeAlert(target))
}

func (r *Router) handlePortfolio(ctx context.Context, userID int64, args []string) string {
	desc, address, errMsg := r.chainAddressArgs(args, "/portfolio")
	if errMsg != "" {
		return errMsg
	}

	report, err := r.portfolio.TokenReport(ctx, desc.Chain, address)
	if err != nil {
		r.log.Error("portfolio lookup failed", "user_id", userID, "chain", desc.Chain, "error", err)
		return "Could not load that portfolio, please try again."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Portfolio</b> on %s\n<code>%s</code>\n\n", report.Chain, report.Address)
	fmt.Fprintf(&b, "%s %s", report.NativeAmount.String(), report.NativeSymbol)
	if report.NativeUSD > 0 {
		fmt.Fprintf(&b, " (≈$%.2f)", report.NativeUSD)
	}
	b.WriteString("\n")
	for _, t := range report.Tokens {
		fmt.Fprintf(&b, "%s %s", t.Amount.String(), t.Symbol)
		if t.Name != "" {
			fmt.Fprintf(&b, " - %s", t.Name)
		}
		b.WriteString("\n")
	}
	if report.TotalValueUSD > 0 {
		fmt.Fprintf(&b, "\nTotal (priced assets): ≈$%.2f", report.TotalValueUSD)
	}
	return b.String()
}

func (r *Router) handleNFTs(ctx context.Context, userID int64, args []string) string {
	desc, address, errMsg := r.chainAddressArgs(args, "/nfts")
	if errMsg != "" {
		return errMsg
	}

	report, err := r.portfolio.NFTReport(ctx, desc.Chain, address)
	if err != nil {
		r.log.Error("nft lookup failed", "user_id", userID, "chain", desc.Chain, "error", err)
		return "Could not load those NFTs, please try again."
	}
	if len(report.Collections) == 0 {
		return "No NFTs found for that address."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>NFTs</b> on %s\n<code>%s</code>\n\n", report.Chain, report.Address)
	for _, c := range report.Collections {
		fmt.Fprintf(&b, "%s × %d\n", c.Name, c.Count)
	}
	return b.String()
}

func (r *Router) handleGas(ctx context.Context, userID int64, args []string) string {
	if len(args) != 1 {
		return "Usage: /gas <chain>, e.g. /gas ethereum"
	}
	desc, errMsg := r.chainArg(args[0])
	if errMsg != "" {
		return errMsg
	}

	reading, err := r.gas.Current(ctx, desc.Chain)
	if err != nil {
		r.log.Error("gas lookup failed", "user_id", userID, "chain", desc.Chain, "error", err)
		return "Could not fetch the gas price, please try again."
	}
	return fmt.Sprintf("⛽ Gas on <b>%s</b>: %s gwei", reading.Chain, reading.Gwei.String())
}

func (r *Router) currentPrice(ctx context.Context, chain model.Chain, token string) (float64, error) {
	if r.reg.IsNativePlaceholder(chain, token) {
		return r.prices.NativePrice(ctx, chain)
	}
	return r.prices.TokenPrice(ctx, chain, token)
}

func (r *Router) chainArg(arg string) (model.ChainDescriptor, string) {
	chain := model.Chain(strings.ToLower(arg))
	desc, ok := r.reg.Descriptor(chain)
	if !ok {
		names := make([]string, 0, len(r.reg.Chains()))
		for _, c := range r.reg.Chains() {
			names = append(names, string(c))
		}
		return model.ChainDescriptor{}, fmt.Sprintf("Unknown chain %q. Supported: %s.", arg, strings.Join(names, ", "))
	}
	return desc, ""
}

func (r *Router) chainAddressArgs(args []string, cmd string) (model.ChainDescriptor, string, string) {
	if len(args) != 2 {
		return model.ChainDescriptor{}, "", fmt.Sprintf("Usage: %s <chain> <address>", cmd)
	}
	desc, errMsg := r.chainArg(args[0])
	if errMsg != "" {
		return model.ChainDescriptor{}, "", errMsg
	}
	address := strings.ToLower(args[1])
	if !addressPattern.MatchString(address) {
		return model.ChainDescriptor{}, "", "That does not look like an EVM address (expected 0x + 40 hex characters)."
	}
	return desc, address, ""
}

// indexArg parses a 1-based list index and returns it 0-based.
func indexArg(args []string, listLen int, cmd string) (int, string) {
	if len(args) != 1 {
		return 0, fmt.Sprintf("Usage: %s <n> (see the numbered list first)", cmd)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > listLen {
		if listLen == 0 {
			return 0, "The list is empty, there is nothing to remove."
		}
		return 0, fmt.Sprintf("Pick a number between 1 and %d.", listLen)
	}
	return n - 1, ""
}

func describeAlert(a model.PriceAlert) string {
	name := a.TokenSymbol
	if name == "" {
		name = a.TokenAddress
	}
	switch a.Kind {
	case model.AlertAbove:
		if a.TargetPrice != nil {
			return fmt.Sprintf("%s on %s above $%s", name, a.Chain, formatUSD(*a.TargetPrice))
		}
	case model.AlertBelow:
		if a.TargetPrice != nil {
			return fmt.Sprintf("%s on %s below $%s", name, a.Chain, formatUSD(*a.TargetPrice))
		}
	case model.AlertPercent:
		if a.TargetPercentage != nil {
			return fmt.Sprintf("%s on %s moves %+.1f%% from $%s", name, a.Chain, *a.TargetPercentage, formatUSD(a.CreatedPrice))
		}
	}
	return fmt.Sprintf("%s on %s", name, a.Chain)
}

func formatUSD(p float64) string {
	if p != 0 && p < 0.01 {
		return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(p, 'f', 8, 64), "0"), ".")
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(p, 'f', 4, 64), "0"), ".")
}
