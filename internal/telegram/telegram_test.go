package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_invest_bot/internal/config"
	"tg_invest_bot/internal/flow"
	"tg_invest_bot/internal/menu"
)

type fakeBot struct {
	startedWith        context.Context
	webhookStartedWith context.Context
	setWebhookParams   *bot.SetWebhookParams
	setWebhookErr      error
}

func (f *fakeBot) Start(ctx context.Context) {
	f.startedWith = ctx
}

func (f *fakeBot) StartWebhook(ctx context.Context) {
	f.webhookStartedWith = ctx
}

func (f *fakeBot) WebhookHandler() http.HandlerFunc {
	return func(http.ResponseWriter, *http.Request) {}
}

func (f *fakeBot) SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error) {
	f.setWebhookParams = params
	if f.setWebhookErr != nil {
		return false, f.setWebhookErr
	}
	return true, nil
}

type fakeDispatcher struct {
	calls []string
	reply flow.Reply
}

func (f *fakeDispatcher) Handle(_ context.Context, chatID int64, text string) flow.Reply {
	f.calls = append(f.calls, text)
	return f.reply
}

type fakeSender struct {
	params []*bot.SendMessageParams
	err    error
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.params = append(f.params, params)
	return &models.Message{}, f.err
}

func nullLogger() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestNewClientCreatesBot(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	var gotToken string
	var gotOptions []bot.Option
	b := &fakeBot{}

	createBot = func(token string, options ...bot.Option) (botRunner, error) {
		gotToken = token
		gotOptions = options
		return b, nil
	}

	cfg := config.Config{TelegramToken: "token-123"}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(cfg, logrus.NewEntry(logger), &fakeDispatcher{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client == nil || client.bot == nil {
		t.Fatalf("expected client and bot to be initialized")
	}

	if gotToken != cfg.TelegramToken {
		t.Fatalf("expected token %q, got %q", cfg.TelegramToken, gotToken)
	}

	if len(gotOptions) != 3 {
		t.Fatalf("expected 3 bot options (allowed updates, default handler, error handler), got %d", len(gotOptions))
	}
}

func TestNewClientRequiresDispatcher(t *testing.T) {
	if _, err := NewClient(config.Config{TelegramToken: "token"}, nullLogger(), nil); err == nil {
		t.Fatalf("expected error for missing dispatcher")
	}
}

func TestNewClientPropagatesBotError(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	expected := errors.New("boom")
	createBot = func(string, ...bot.Option) (botRunner, error) {
		return nil, expected
	}

	_, err := NewClient(config.Config{TelegramToken: "token"}, nil, &fakeDispatcher{})
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestStartWebhookRegistersSecretPath(t *testing.T) {
	b := &fakeBot{}
	client := &Client{
		bot:         b,
		logger:      nullLogger(),
		webhookBase: "https://bot.example.com",
		token:       "token-123",
	}

	if err := client.StartWebhook(context.Background()); err != nil {
		t.Fatalf("StartWebhook returned error: %v", err)
	}

	if b.setWebhookParams == nil {
		t.Fatalf("expected SetWebhook to be called")
	}

	wantURL := "https://bot.example.com/bot/token-123"
	if b.setWebhookParams.URL != wantURL {
		t.Fatalf("expected webhook url %q, got %q", wantURL, b.setWebhookParams.URL)
	}

	if b.webhookStartedWith == nil {
		t.Fatalf("expected webhook processing to start")
	}
}

func TestStartWebhookPropagatesRegistrationError(t *testing.T) {
	expected := errors.New("register failed")
	client := &Client{
		bot:    &fakeBot{setWebhookErr: expected},
		logger: nullLogger(),
		token:  "token-123",
	}

	if err := client.StartWebhook(context.Background()); !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestHandleUpdateDispatchesAndReplies(t *testing.T) {
	dispatcher := &fakeDispatcher{reply: flow.Reply{
		Text:     "hello",
		Keyboard: menu.KeyboardAnonymous,
		Markdown: true,
	}}
	sender := &fakeSender{}

	update := &models.Update{
		Message: &models.Message{
			Chat: models.Chat{ID: 42},
			Text: " /start ",
		},
	}

	handleUpdate(context.Background(), sender, update, nullLogger(), dispatcher)

	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != "/start" {
		t.Fatalf("expected trimmed text dispatched, got %v", dispatcher.calls)
	}

	if len(sender.params) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(sender.params))
	}

	params := sender.params[0]
	if params.ChatID != int64(42) || params.Text != "hello" {
		t.Fatalf("unexpected send params: %+v", params)
	}

	if params.ParseMode != models.ParseModeMarkdown {
		t.Fatalf("expected markdown parse mode, got %q", params.ParseMode)
	}

	if _, ok := params.ReplyMarkup.(*models.ReplyKeyboardMarkup); !ok {
		t.Fatalf("expected reply keyboard markup, got %T", params.ReplyMarkup)
	}
}

func TestHandleUpdateIgnoresNonMessageUpdates(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	sender := &fakeSender{}

	handleUpdate(context.Background(), sender, nil, nullLogger(), dispatcher)
	handleUpdate(context.Background(), sender, &models.Update{}, nullLogger(), dispatcher)
	handleUpdate(context.Background(), sender, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 1}, Text: "   "},
	}, nullLogger(), dispatcher)

	if len(dispatcher.calls) != 0 || len(sender.params) != 0 {
		t.Fatalf("expected no dispatch for non-text updates, got %v / %v", dispatcher.calls, sender.params)
	}
}

func TestHandleUpdateOmitsMarkupWhenKeyboardNone(t *testing.T) {
	dispatcher := &fakeDispatcher{reply: flow.Reply{Text: "plain"}}
	sender := &fakeSender{}

	handleUpdate(context.Background(), sender, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 7}, Text: "hi"},
	}, nullLogger(), dispatcher)

	if len(sender.params) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(sender.params))
	}

	if sender.params[0].ReplyMarkup != nil {
		t.Fatalf("expected nil reply markup, got %+v", sender.params[0].ReplyMarkup)
	}

	if sender.params[0].ParseMode != "" {
		t.Fatalf("expected no parse mode, got %q", sender.params[0].ParseMode)
	}
}
