// Package session defines per-chat conversational state and the stores that
// hold it, keyed by Telegram chat id.
package session

import (
	"context"
	"time"
)

// Step tags the multi-turn flow position a chat is currently in. The zero
// value means no flow is active.
type Step string

const (
	StepNone           Step = ""
	StepSignupFullName Step = "signup_fullname"
	StepSignupEmail    Step = "signup_email"
	StepSignupUsername Step = "signup_username"
	StepSignupPassword Step = "signup_password"
	StepVerifyOTP      Step = "verify_otp"
	StepAwaitingLogin  Step = "awaiting_login"
	StepWithdrawWallet Step = "withdraw_wallet"
)

// Session is the state carried between chat turns for one chat identity.
// Signup fields are transient: they exist only while Step walks the signup
// chain and are replaced wholesale once the user authenticates.
type Session struct {
	ChatID int64 `bson:"chat_id" json:"chat_id"`
	Step   Step  `bson:"step,omitempty" json:"step,omitempty"`

	FullName string `bson:"full_name,omitempty" json:"full_name,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Password string `bson:"password,omitempty" json:"password,omitempty"`

	Token    string `bson:"token,omitempty" json:"token,omitempty"`
	LoggedIn bool   `bson:"logged_in,omitempty" json:"logged_in,omitempty"`

	// SelectedTier is the 1-based catalog index chosen between plan selection
	// and amount entry; 0 means no plan is pending.
	SelectedTier int `bson:"selected_tier,omitempty" json:"selected_tier,omitempty"`

	// WithdrawBalance is the balance captured when the withdrawal flow
	// started; only meaningful while Step is StepWithdrawWallet.
	WithdrawBalance float64 `bson:"withdraw_balance,omitempty" json:"withdraw_balance,omitempty"`

	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// HasEmail reports whether the session carries an account identity. The
// authenticated-only menu entries gate on this, matching the platform's own
// email-keyed API.
func (s Session) HasEmail() bool {
	return s.Email != ""
}

// Store is the session repository contract. Implementations provide no
// per-chat serialization: two in-flight turns for the same chat may interleave
// their read-modify-write cycles.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, bool, error)
	Put(ctx context.Context, chatID int64, sess Session) error
	Delete(ctx context.Context, chatID int64) error
}

// Counter reports how many sessions a store currently holds, for diagnostics.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Pinger verifies connectivity to the store's backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FullStore is what Open hands to the bootstrap: the repository contract plus
// lifecycle and diagnostics.
type FullStore interface {
	Store
	Counter
	Pinger
	Close(ctx context.Context) error
}
