// Package flow interprets chat turns as steps of the bot's conversational
// flows and produces the outbound reply for each inbound message.
package flow

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tg_invest_bot/internal/backend"
	"tg_invest_bot/internal/config"
	"tg_invest_bot/internal/logging"
	"tg_invest_bot/internal/menu"
	"tg_invest_bot/internal/plan"
	"tg_invest_bot/internal/session"
)

// Backend is the investment platform surface the interpreter calls.
type Backend interface {
	Signup(ctx context.Context, req backend.SignupRequest) (backend.StatusResult, error)
	VerifyOTP(ctx context.Context, email, otp string) (backend.StatusResult, error)
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
	Balance(ctx context.Context, email string) (backend.BalanceResult, error)
	Deposit(ctx context.Context, req backend.DepositRequest) (backend.MessageResult, error)
	Withdraw(ctx context.Context, req backend.WithdrawRequest) (backend.MessageResult, error)
	Assets(ctx context.Context, email string) (backend.AssetsResult, error)
}

// Reply is one outbound chat message. Keyboard selects a fixed layout to
// attach; Markdown enables Telegram Markdown parsing.
type Reply struct {
	Text     string
	Keyboard menu.Keyboard
	Markdown bool
}

var (
	replyServerError   = "❌ " + backend.GenericErrorMessage + ". Please try again."
	replyLoginRequired = "❌ You must login first using " + menu.LabelLogin + "."
	replyUnknown       = "🤖 I don’t understand that. Please choose an option from the menu."
)

var planSelectionPattern = regexp.MustCompile(`^[1-4]$`)

// Interpreter classifies each inbound (chatID, text) pair into exactly one
// handler and mutates the session store accordingly.
type Interpreter struct {
	sessions session.Store
	api      Backend
	logger   *logrus.Entry

	btcWallet     string
	usdtWallet    string
	supportHandle string

	now func() time.Time
}

// NewInterpreter constructs an Interpreter over the given store and backend.
func NewInterpreter(sessions session.Store, api Backend, cfg config.Config, logger *logrus.Entry) *Interpreter {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Interpreter{
		sessions:      sessions,
		api:           api,
		logger:        logger,
		btcWallet:     cfg.BTCWallet,
		usdtWallet:    cfg.USDTWallet,
		supportHandle: cfg.SupportHandle,
		now:           time.Now,
	}
}

// Handle interprets one chat turn. Guard order is load-bearing: each case
// assumes every earlier one did not match, so a mid-flow step consumes text
// that would otherwise hit a label or pattern guard further down. Errors never
// escape; every failure becomes a chat reply.
func (i *Interpreter) Handle(ctx context.Context, chatID int64, text string) Reply {
	text = strings.TrimSpace(text)

	sess, found, err := i.sessions.Get(ctx, chatID)
	if err != nil {
		i.logger.WithError(err).WithField("chat_id", chatID).Error("session load failed")
		return Reply{Text: replyServerError}
	}

	switch {
	case text == "/start":
		return i.handleStart(ctx, chatID, found)
	case text == menu.LabelSignup:
		return i.handleSignupStart(ctx, chatID)
	case found && sess.Step == session.StepSignupFullName:
		return i.handleSignupField(ctx, chatID, sess, text, session.StepSignupEmail)
	case found && sess.Step == session.StepSignupEmail:
		return i.handleSignupField(ctx, chatID, sess, text, session.StepSignupUsername)
	case found && sess.Step == session.StepSignupUsername:
		return i.handleSignupField(ctx, chatID, sess, text, session.StepSignupPassword)
	case found && sess.Step == session.StepSignupPassword:
		return i.handleSignupSubmit(ctx, chatID, sess, text)
	case found && sess.Step == session.StepVerifyOTP:
		return i.handleVerifyOTP(ctx, chatID, sess, text)
	case text == menu.LabelLogin:
		return i.handleLoginStart(ctx, chatID)
	case found && sess.Step == session.StepAwaitingLogin && strings.Contains(text, "|"):
		return i.handleLoginSubmit(ctx, chatID, text)
	case text == menu.LabelBalance:
		return i.handleBalance(ctx, sess)
	case text == menu.LabelViewPlans || text == menu.LabelInvest:
		return Reply{Text: menu.TierCatalog()}
	case planSelectionPattern.MatchString(text):
		return i.handlePlanSelection(ctx, chatID, sess, text)
	case sess.SelectedTier != 0 && isNumeric(text):
		return i.handleDepositAmount(ctx, chatID, sess, text)
	case text == menu.LabelWithdraw:
		return i.handleWithdrawStart(ctx, chatID, sess)
	case found && sess.Step == session.StepWithdrawWallet:
		return i.handleWithdrawWallet(ctx, chatID, sess, text)
	case text == menu.LabelInvestments:
		return i.handleInvestments(ctx, sess)
	case text == menu.LabelLogout:
		return i.handleLogout(ctx, chatID, sess)
	default:
		return Reply{Text: replyUnknown}
	}
}

func (i *Interpreter) handleStart(ctx context.Context, chatID int64, found bool) Reply {
	if !found {
		if !i.put(ctx, chatID, session.Session{}) {
			return Reply{Text: replyServerError}
		}
	}

	return Reply{Text: menu.Welcome(), Keyboard: menu.KeyboardAnonymous}
}

func (i *Interpreter) handleSignupStart(ctx context.Context, chatID int64) Reply {
	if !i.put(ctx, chatID, session.Session{Step: session.StepSignupFullName}) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: "Enter your full name:"}
}

func (i *Interpreter) handleSignupField(ctx context.Context, chatID int64, sess session.Session, text string, next session.Step) Reply {
	var prompt string

	switch sess.Step {
	case session.StepSignupFullName:
		sess.FullName = text
		prompt = "Enter your email:"
	case session.StepSignupEmail:
		sess.Email = text
		prompt = "Choose a username:"
	case session.StepSignupUsername:
		sess.Username = text
		prompt = "Enter a password:"
	}

	sess.Step = next
	if !i.put(ctx, chatID, sess) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: prompt}
}

func (i *Interpreter) handleSignupSubmit(ctx context.Context, chatID int64, sess session.Session, text string) Reply {
	sess.Password = text

	_, err := i.api.Signup(ctx, backend.SignupRequest{
		FullName: sess.FullName,
		Email:    sess.Email,
		Username: sess.Username,
		Password: sess.Password,
	})
	if err != nil {
		i.logBackendFailure(chatID, "signup", err)
		// A failed signup discards the whole session; the next message starts
		// a fresh, unauthenticated interaction.
		if derr := i.sessions.Delete(ctx, chatID); derr != nil {
			i.logger.WithError(derr).WithField("chat_id", chatID).Error("session delete failed")
		}
		return Reply{Text: "❌ Signup failed: " + backend.UserMessage(err)}
	}

	sess.Step = session.StepVerifyOTP
	if !i.put(ctx, chatID, sess) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: "✅ Signup successful!\n\n📩 Check your email for the 6-digit OTP code and type it here to verify your account."}
}

func (i *Interpreter) handleVerifyOTP(ctx context.Context, chatID int64, sess session.Session, otp string) Reply {
	verify, err := i.api.VerifyOTP(ctx, sess.Email, otp)
	if err != nil {
		i.logBackendFailure(chatID, "verify_otp", err)
		return Reply{Text: "❌ Verification/Login failed: " + backend.UserMessage(err)}
	}

	if !verify.Success {
		// Re-prompt without touching the session; the user retries the code.
		return Reply{Text: "❌ Invalid OTP. Try again:"}
	}

	login, err := i.api.Login(ctx, sess.Email, sess.Password)
	if err != nil {
		i.logBackendFailure(chatID, "login", err)
		return Reply{Text: "❌ Verification/Login failed: " + backend.UserMessage(err)}
	}

	if !login.Success {
		return Reply{Text: "❌ Login failed: " + login.Message}
	}

	if !i.put(ctx, chatID, session.Session{
		Email:    sess.Email,
		Token:    login.Token,
		LoggedIn: true,
	}) {
		return Reply{Text: replyServerError}
	}

	return Reply{
		Text:     "🎉 Your email has been verified & you are now logged in!\n\nWelcome to your dashboard.",
		Keyboard: menu.KeyboardAuthenticated,
	}
}

func (i *Interpreter) handleLoginStart(ctx context.Context, chatID int64) Reply {
	if !i.put(ctx, chatID, session.Session{Step: session.StepAwaitingLogin}) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: "Enter your login details:\n`Email | Password`", Markdown: true}
}

func (i *Interpreter) handleLoginSubmit(ctx context.Context, chatID int64, text string) Reply {
	parts := strings.SplitN(text, "|", 2)
	email := strings.TrimSpace(parts[0])
	password := strings.TrimSpace(parts[1])

	login, err := i.api.Login(ctx, email, password)
	if err != nil {
		i.logBackendFailure(chatID, "login", err)
		return Reply{Text: "❌ Login failed: " + backend.UserMessage(err)}
	}

	if !login.Success {
		return Reply{Text: "❌ " + login.Message}
	}

	if !i.put(ctx, chatID, session.Session{
		Email:    email,
		Token:    login.Token,
		LoggedIn: true,
	}) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: "✅ " + login.Message, Keyboard: menu.KeyboardAuthenticated}
}

func (i *Interpreter) handleBalance(ctx context.Context, sess session.Session) Reply {
	if !sess.HasEmail() {
		return Reply{Text: replyLoginRequired}
	}

	res, err := i.api.Balance(ctx, sess.Email)
	if err != nil {
		i.logBackendFailure(sess.ChatID, "balance", err)
		return Reply{Text: "❌ Failed to fetch balance."}
	}

	return Reply{Text: "💰 Your balance is: ₦" + menu.Amount(res.Balance)}
}

func (i *Interpreter) handlePlanSelection(ctx context.Context, chatID int64, sess session.Session, text string) Reply {
	n, err := strconv.Atoi(text)
	if err != nil {
		return Reply{Text: replyUnknown}
	}

	tier, ok := plan.ByIndex(n)
	if !ok {
		return Reply{Text: replyUnknown}
	}

	// Merge onto the existing session: a logged-in user keeps their identity.
	sess.SelectedTier = n
	if !i.put(ctx, chatID, sess) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: menu.TierPrompt(tier), Markdown: true}
}

func (i *Interpreter) handleDepositAmount(ctx context.Context, chatID int64, sess session.Session, text string) Reply {
	tier, ok := plan.ByIndex(sess.SelectedTier)
	if !ok {
		return Reply{Text: replyUnknown}
	}

	amount, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Reply{Text: replyUnknown}
	}

	if amount < tier.Min || amount > tier.Max {
		// Re-prompt with the valid range; the pending plan stays selected.
		return Reply{Text: "❌ Invalid amount. Please enter between $" + menu.Amount(tier.Min) + " and $" + menu.Amount(tier.Max) + "."}
	}

	res, err := i.api.Deposit(ctx, backend.DepositRequest{
		Email:               sess.Email,
		DepositAmount:       amount,
		PlanName:            plan.Name,
		PlanPrincipleReturn: true,
		PlanCreditAmount:    amount,
		PlanDepositFee:      0,
		PlanDebitAmount:     amount,
		DepositMethod:       "crypto",
	})
	if err != nil {
		i.logBackendFailure(chatID, "deposit", err)
		// SelectedTier stays set so re-entering an amount retries.
		return Reply{Text: "❌ Deposit failed: " + backend.UserMessage(err)}
	}

	sess.SelectedTier = 0
	if !i.put(ctx, chatID, sess) {
		return Reply{Text: replyServerError}
	}

	return Reply{
		Text:     menu.DepositInstructions(res.Message, i.btcWallet, i.usdtWallet, i.supportHandle),
		Markdown: true,
	}
}

func (i *Interpreter) handleWithdrawStart(ctx context.Context, chatID int64, sess session.Session) Reply {
	if !sess.HasEmail() {
		return Reply{Text: replyLoginRequired}
	}

	res, err := i.api.Balance(ctx, sess.Email)
	if err != nil {
		i.logBackendFailure(chatID, "balance", err)
		return Reply{Text: "❌ Failed to fetch balance."}
	}

	if res.Balance <= 0 {
		return Reply{Text: "❌ You have no balance to withdraw."}
	}

	sess.WithdrawBalance = res.Balance
	sess.Step = session.StepWithdrawWallet
	if !i.put(ctx, chatID, sess) {
		return Reply{Text: replyServerError}
	}

	return Reply{Text: "💸 Your balance is ₦" + menu.Amount(res.Balance) + ".\nEnter the wallet address to receive your withdrawal:"}
}

func (i *Interpreter) handleWithdrawWallet(ctx context.Context, chatID int64, sess session.Session, wallet string) Reply {
	amount := sess.WithdrawBalance

	// The sub-flow ends on any outcome; a failed withdrawal restarts from the
	// Withdraw button.
	sess.Step = session.StepNone
	sess.WithdrawBalance = 0
	if !i.put(ctx, chatID, sess) {
		return Reply{Text: replyServerError}
	}

	res, err := i.api.Withdraw(ctx, backend.WithdrawRequest{
		Email:  sess.Email,
		Wallet: wallet,
		Amount: amount,
	})
	if err != nil {
		i.logBackendFailure(chatID, "withdraw", err)
		return Reply{Text: "❌ Withdrawal failed: " + backend.UserMessage(err)}
	}

	return Reply{Text: "✅ " + res.Message}
}

func (i *Interpreter) handleInvestments(ctx context.Context, sess session.Session) Reply {
	if !sess.HasEmail() {
		return Reply{Text: replyLoginRequired}
	}

	res, err := i.api.Assets(ctx, sess.Email)
	if err != nil {
		i.logBackendFailure(sess.ChatID, "assets", err)
		return Reply{Text: "❌ " + backend.UserMessage(err)}
	}

	return Reply{Text: menu.InvestmentSummary(res.Deposits, i.now())}
}

func (i *Interpreter) handleLogout(ctx context.Context, chatID int64, sess session.Session) Reply {
	if !sess.HasEmail() {
		return Reply{Text: "ℹ️ You are not logged in.", Keyboard: menu.KeyboardAnonymous}
	}

	if err := i.sessions.Delete(ctx, chatID); err != nil {
		i.logger.WithError(err).WithField("chat_id", chatID).Error("session delete failed")
		return Reply{Text: replyServerError}
	}

	return Reply{Text: "✅ You have been logged out successfully.", Keyboard: menu.KeyboardAnonymous}
}

// put persists the session, logging failures and reporting success.
func (i *Interpreter) put(ctx context.Context, chatID int64, sess session.Session) bool {
	if err := i.sessions.Put(ctx, chatID, sess); err != nil {
		i.logger.WithError(err).WithField("chat_id", chatID).Error("session save failed")
		return false
	}

	return true
}

func (i *Interpreter) logBackendFailure(chatID int64, call string, err error) {
	i.logger.WithError(err).WithFields(logging.Fields{
		"event":   "backend_call_failed",
		"call":    call,
		"chat_id": chatID,
	}).Warn("backend call failed")
}

func isNumeric(text string) bool {
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}
