// Package menu renders the bot's fixed keyboards and formatted message bodies.
// Pure formatting, no decision logic.
package menu

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"tg_invest_bot/internal/backend"
	"tg_invest_bot/internal/plan"
)

// Top-level menu labels. Guard matching in the flow interpreter compares
// against these exact strings, emoji included.
const (
	LabelLogin       = "🔐 Login"
	LabelSignup      = "📝 Signup"
	LabelViewPlans   = "💰 View Plans"
	LabelBalance     = "📈 My Balance"
	LabelInvest      = "➕ Invest"
	LabelWithdraw    = "💸 Withdraw"
	LabelInvestments = "📊 My Investments"
	LabelLogout      = "🚪 Logout"
)

// Keyboard names one of the fixed reply keyboard layouts.
type Keyboard int

const (
	// KeyboardNone leaves the chat's current keyboard untouched.
	KeyboardNone Keyboard = iota
	// KeyboardAnonymous offers Login/Signup.
	KeyboardAnonymous
	// KeyboardAuthenticated offers the dashboard actions.
	KeyboardAuthenticated
)

const msPerDay = 86_400_000

// Markup returns the Telegram reply markup for the given keyboard, or nil for
// KeyboardNone.
func Markup(k Keyboard) models.ReplyMarkup {
	switch k {
	case KeyboardAnonymous:
		return &models.ReplyKeyboardMarkup{
			Keyboard: [][]models.KeyboardButton{
				{{Text: LabelLogin}, {Text: LabelSignup}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: false,
		}
	case KeyboardAuthenticated:
		return &models.ReplyKeyboardMarkup{
			Keyboard: [][]models.KeyboardButton{
				{{Text: LabelViewPlans}, {Text: LabelBalance}},
				{{Text: LabelInvest}, {Text: LabelWithdraw}},
				{{Text: LabelInvestments}, {Text: LabelLogout}},
			},
			ResizeKeyboard:  true,
			OneTimeKeyboard: false,
		}
	default:
		return nil
	}
}

// Welcome is the /start greeting shown with the anonymous keyboard.
func Welcome() string {
	return "📊 Welcome to FLT Investments!\nChoose an option:"
}

// TierCatalog lists all plans with their contribution bounds and a selection
// prompt.
func TierCatalog() string {
	var b strings.Builder

	b.WriteString("📊 Investment Plans (All expire in 9 days):\n\n")
	for i, tier := range plan.Tiers {
		fmt.Fprintf(&b, "%d. %s\n   Min: $%s\n   Max: $%s\n\n",
			i+1, tier.Name, Amount(tier.Min), Amount(tier.Max))
	}
	b.WriteString("Select a plan by typing its number (e.g. 1, 2, 3...)")

	return b.String()
}

// TierPrompt asks for the investment amount after a plan was selected.
// Rendered with Markdown.
func TierPrompt(tier plan.Tier) string {
	return fmt.Sprintf("📌 *%s*\n\n%s\n\n💵 Please enter the *amount* you want to invest in this plan.",
		tier.Name, tier.Description)
}

// DepositInstructions appends the payment addresses and support contact to the
// platform's deposit acknowledgement. Rendered with Markdown.
func DepositInstructions(message, btcWallet, usdtWallet, supportHandle string) string {
	return fmt.Sprintf("✅ %s\n\n📌 Send your payment to:\nBTC: `%s`\nUSDT (TRC20): `%s`\n\nAfter payment, send screenshot to %s for verification.",
		message, btcWallet, usdtWallet, supportHandle)
}

// InvestmentSummary renders one block per deposit with the expected return and
// the days remaining. Past-due deposits read "Completed" rather than a
// negative day count.
func InvestmentSummary(deposits []backend.Deposit, now time.Time) string {
	if len(deposits) == 0 {
		return "📭 You have no investments yet."
	}

	var b strings.Builder

	b.WriteString("📊 Your Investments:\n")
	for _, dep := range deposits {
		expectedReturn := dep.Amount + dep.Interest

		fmt.Fprintf(&b, "\n📌 %s\n💵 Amount: $%s\n📈 Expected Return: $%s\n",
			dep.PlanName, Amount(dep.Amount), Amount(expectedReturn))

		if days := daysLeft(dep.InvestmentEndDate.Time, now); days > 0 {
			fmt.Fprintf(&b, "⏳ Days Left: %d\n", days)
		} else {
			b.WriteString("✅ Status: Completed\n")
		}
	}

	return b.String()
}

// daysLeft is a calendar ceiling over the raw millisecond difference. Partial
// days round up; no timezone normalization is applied.
func daysLeft(end, now time.Time) int64 {
	diff := end.Sub(now).Milliseconds()
	return int64(math.Ceil(float64(diff) / msPerDay))
}

// Amount formats a monetary value the way the platform does: no grouping, no
// trailing zeros.
func Amount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
