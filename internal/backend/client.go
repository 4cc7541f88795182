// Package backend is the HTTP client for the investment platform API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"tg_invest_bot/internal/config"
)

const defaultTimeout = 15 * time.Second

// GenericErrorMessage is relayed to the chat when the platform gave no usable
// message for a failure.
const GenericErrorMessage = "Server error"

// APIError is a platform-rejected request: a non-2xx response, carrying the
// platform's message field when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}

	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

// UserMessage maps a backend call failure to the text shown in chat: the
// platform's own message when it sent one, a generic string otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}

	return GenericErrorMessage
}

// Client issues requests against the investment platform API. It performs no
// retries; every call maps one chat turn to one request.
type Client struct {
	http *resty.Client
}

// NewClient constructs a Client for the configured API base URL.
func NewClient(cfg config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIBase) == "" {
		return nil, errors.New("api base url is required")
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetTimeout(defaultTimeout)

	return &Client{http: cli}, nil
}

// Signup registers a new account; the platform mails a 6-digit OTP on success.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (StatusResult, error) {
	var out StatusResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/signup")
	if err != nil {
		return StatusResult{}, fmt.Errorf("signup request: %w", err)
	}
	if resp.IsError() {
		return StatusResult{}, apiError(resp)
	}

	return out, nil
}

// VerifyOTP submits the emailed code. A wrong code comes back as a 2xx with
// Success=false, not as an error.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (StatusResult, error) {
	var out StatusResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email, "otp": otp}).
		SetResult(&out).
		Post("/verify-otp")
	if err != nil {
		return StatusResult{}, fmt.Errorf("verify otp request: %w", err)
	}
	if resp.IsError() {
		return StatusResult{}, apiError(resp)
	}

	return out, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/login")
	if err != nil {
		return LoginResult{}, fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		return LoginResult{}, apiError(resp)
	}

	return out, nil
}

// Balance fetches the account balance for the given email.
func (c *Client) Balance(ctx context.Context, email string) (BalanceResult, error) {
	var out BalanceResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		Get("/getBalance")
	if err != nil {
		return BalanceResult{}, fmt.Errorf("balance request: %w", err)
	}
	if resp.IsError() {
		return BalanceResult{}, apiError(resp)
	}

	return out, nil
}

// Deposit opens an investment under the fixed Telegram plan.
func (c *Client) Deposit(ctx context.Context, req DepositRequest) (MessageResult, error) {
	var out MessageResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/deposit")
	if err != nil {
		return MessageResult{}, fmt.Errorf("deposit request: %w", err)
	}
	if resp.IsError() {
		return MessageResult{}, apiError(resp)
	}

	return out, nil
}

// Withdraw requests a payout of the captured balance to the given wallet.
func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (MessageResult, error) {
	var out MessageResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/withdraw")
	if err != nil {
		return MessageResult{}, fmt.Errorf("withdraw request: %w", err)
	}
	if resp.IsError() {
		return MessageResult{}, apiError(resp)
	}

	return out, nil
}

// Assets lists the account's deposits.
func (c *Client) Assets(ctx context.Context, email string) (AssetsResult, error) {
	var out AssetsResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email}).
		SetResult(&out).
		Post("/assets")
	if err != nil {
		return AssetsResult{}, fmt.Errorf("assets request: %w", err)
	}
	if resp.IsError() {
		return AssetsResult{}, apiError(resp)
	}

	return out, nil
}

func apiError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode()}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Message = strings.TrimSpace(body.Message)
	}

	return apiErr
}
