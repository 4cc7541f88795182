// Package telegram hosts the Telegram client, update intake, and reply sending.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tg_invest_bot/internal/config"
	"tg_invest_bot/internal/flow"
	"tg_invest_bot/internal/logging"
	"tg_invest_bot/internal/menu"
)

// Dispatcher interprets one chat turn and produces the outbound reply.
type Dispatcher interface {
	Handle(ctx context.Context, chatID int64, text string) flow.Reply
}

// replySender is the subset of bot.Bot used to answer an update.
type replySender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type botRunner interface {
	Start(ctx context.Context)
	StartWebhook(ctx context.Context)
	WebhookHandler() http.HandlerFunc
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
	}

	createBot = func(token string, options ...bot.Option) (botRunner, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance and routes message updates to the
// flow interpreter.
type Client struct {
	bot         botRunner
	logger      *logrus.Entry
	webhookBase string
	token       string
}

// NewClient initializes the Telegram bot with the default message handler.
func NewClient(cfg config.Config, logger *logrus.Entry, dispatcher Dispatcher) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(messageHandler(logger, dispatcher)),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	return &Client{
		bot:         tgBot,
		logger:      logger,
		webhookBase: cfg.WebhookURL,
		token:       cfg.TelegramToken,
	}, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// WebhookPath is the secret-path route updates are POSTed to; the path segment
// is the bot token itself.
func (c *Client) WebhookPath() string {
	return "/bot/" + c.token
}

// WebhookHandler returns the HTTP handler consuming webhook updates. It
// acknowledges every delivery with HTTP 200.
func (c *Client) WebhookHandler() http.HandlerFunc {
	return c.bot.WebhookHandler()
}

// StartWebhook registers the webhook with Telegram and processes deliveries
// until the context is canceled.
func (c *Client) StartWebhook(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	url := c.webhookBase + c.WebhookPath()
	if _, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            url,
		AllowedUpdates: defaultAllowedUpdates,
	}); err != nil {
		return fmt.Errorf("register telegram webhook: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"event": "telegram_webhook_listen",
	}).Info("starting telegram webhook processing")

	c.bot.StartWebhook(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram webhook processing stopped")
	return nil
}

func messageHandler(logger *logrus.Entry, dispatcher Dispatcher) bot.HandlerFunc {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		handleUpdate(ctx, b, update, logger, dispatcher)
	}
}

func handleUpdate(ctx context.Context, sender replySender, update *models.Update, logger *logrus.Entry, dispatcher Dispatcher) {
	if update == nil || update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	entry := logger.WithFields(logging.Fields{
		"event":          "telegram_update",
		"chat_id":        chatID,
		"correlation_id": uuid.NewString(),
	})
	entry.Debug("telegram message received")

	reply := dispatcher.Handle(ctx, chatID, text)
	if reply.Text == "" {
		return
	}

	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        reply.Text,
		ReplyMarkup: menu.Markup(reply.Keyboard),
	}
	if reply.Markdown {
		params.ParseMode = models.ParseModeMarkdown
	}

	if _, err := sender.SendMessage(ctx, params); err != nil {
		entry.WithError(err).Error("failed to send telegram reply")
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
