package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignupRequest carries the fields collected across the signup flow. Referrer
// stays nil; the bot has no referral program.
type SignupRequest struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Referrer *string `json:"referrer"`
}

// StatusResult is the success/message shape shared by signup and verify-otp.
type StatusResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginResult carries the session token issued on a successful login.
type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// BalanceResult reports the account balance; a missing field decodes to 0.
type BalanceResult struct {
	Balance float64 `json:"balance"`
}

// MessageResult is the bare acknowledgement shape used by deposit and withdraw.
type MessageResult struct {
	Message string `json:"message"`
}

// DepositRequest mirrors the platform's deposit payload. The three
// amount-shaped fields all carry the user's amount and the fee stays zero; the
// platform applies plan economics server-side.
type DepositRequest struct {
	Email               string  `json:"email"`
	DepositAmount       float64 `json:"depositAmount"`
	PlanName            string  `json:"planName"`
	PlanPrincipleReturn bool    `json:"planPrincipleReturn"`
	PlanCreditAmount    float64 `json:"planCreditAmount"`
	PlanDepositFee      float64 `json:"planDepositFee"`
	PlanDebitAmount     float64 `json:"planDebitAmount"`
	DepositMethod       string  `json:"depositMethod"`
}

// WithdrawRequest asks the platform to pay out the full captured balance to
// the provided wallet.
type WithdrawRequest struct {
	Email  string  `json:"email"`
	Wallet string  `json:"wallet"`
	Amount float64 `json:"amount"`
}

// AssetsResult lists the account's active and completed deposits.
type AssetsResult struct {
	Deposits []Deposit `json:"deposits"`
}

// Deposit is a single investment record as reported by the platform.
type Deposit struct {
	Amount            float64 `json:"amount"`
	Interest          float64 `json:"interest"`
	PlanName          string  `json:"plan_name"`
	InvestmentEndDate Millis  `json:"investment_end_date"`
}

// Millis is an instant that unmarshals from either epoch milliseconds or an
// ISO-8601 string; the platform emits both depending on its driver settings.
type Millis struct {
	time.Time
}

// UnmarshalJSON accepts a JSON number (epoch ms), a numeric string, or an
// RFC 3339 timestamp.
func (m *Millis) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		m.Time = time.Time{}
		return nil
	}

	if raw != "" && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode investment date: %w", err)
		}
		s = strings.TrimSpace(s)

		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			m.Time = time.UnixMilli(ms).UTC()
			return nil
		}

		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				m.Time = t
				return nil
			}
		}

		return fmt.Errorf("decode investment date: unsupported format %q", s)
	}

	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("decode investment date: %w", err)
	}

	m.Time = time.UnixMilli(ms).UTC()
	return nil
}

// MarshalJSON emits epoch milliseconds, matching the platform's own encoding.
func (m Millis) MarshalJSON() ([]byte, error) {
	if m.Time.IsZero() {
		return []byte("null"), nil
	}

	return []byte(strconv.FormatInt(m.Time.UnixMilli(), 10)), nil
}
