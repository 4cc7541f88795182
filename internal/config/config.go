// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken  = "TELEGRAM_TOKEN"
	KeyAPIBase        = "API_BASE"
	KeyAppEnv         = "APP_ENV"
	KeyLogLevel       = "LOG_LEVEL"
	KeyHTTPPort       = "HTTP_PORT"
	KeyWebhookURL     = "WEBHOOK_URL"
	KeySessionBackend = "SESSION_BACKEND"
	KeyRedisURL       = "REDIS_URL"
	KeyMongoURI       = "MONGO_URI"
	KeyMongoDB        = "MONGO_DB"
	KeyBTCWallet      = "BTC_WALLET"
	KeyUSDTWallet     = "USDT_WALLET"
	KeySupportHandle  = "SUPPORT_HANDLE"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Allowed session store backends.
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"

	// Defaults for optional settings.
	DefaultAppEnv         = EnvProduction
	DefaultLogLevel       = "info"
	DefaultHTTPPort       = 8080
	DefaultSessionBackend = BackendMemory
	DefaultMongoDB        = "invest_bot"

	// Payment details shown after a successful deposit request. Overridable so
	// staging deployments can point at test wallets.
	DefaultBTCWallet     = "1ABCDxyzbtcwallet"
	DefaultUSDTWallet    = "TX123usdtwallet"
	DefaultSupportHandle = "@FLTSupport"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyAPIBase,
		Example:     "https://api.example.com/api",
		Required:    true,
		Description: "Base URL of the investment platform API.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/webhook port.",
	},
	{
		Key:         KeyWebhookURL,
		Example:     "https://bot.example.com",
		Description: "Public base URL for webhook delivery. Empty switches the bot to long polling.",
	},
	{
		Key:         KeySessionBackend,
		Example:     BackendMemory + " / " + BackendRedis + " / " + BackendMongo,
		Default:     DefaultSessionBackend,
		Description: "Where per-chat sessions live.",
		Notes:       "memory keeps sessions for the process lifetime only.",
	},
	{
		Key:         KeyRedisURL,
		Example:     "redis://localhost:6379/0",
		Description: "Redis connection URL.",
		Notes:       "Required when " + KeySessionBackend + "=" + BackendRedis + ".",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string.",
		Notes:       "Required when " + KeySessionBackend + "=" + BackendMongo + ".",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDB,
		Default:     DefaultMongoDB,
		Description: "MongoDB database name.",
	},
	{
		Key:         KeyBTCWallet,
		Example:     DefaultBTCWallet,
		Default:     DefaultBTCWallet,
		Description: "BTC address shown in deposit payment instructions.",
	},
	{
		Key:         KeyUSDTWallet,
		Example:     DefaultUSDTWallet,
		Default:     DefaultUSDTWallet,
		Description: "USDT (TRC20) address shown in deposit payment instructions.",
	},
	{
		Key:         KeySupportHandle,
		Example:     DefaultSupportHandle,
		Default:     DefaultSupportHandle,
		Description: "Telegram handle users contact with payment proof.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken  string
	APIBase        string
	AppEnv         string
	LogLevel       string
	HTTPPort       int
	WebhookURL     string
	SessionBackend string
	RedisURL       string
	MongoURI       string
	MongoDB        string
	BTCWallet      string
	USDTWallet     string
	SupportHandle  string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:         firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:  strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		APIBase:        strings.TrimRight(strings.TrimSpace(os.Getenv(KeyAPIBase)), "/"),
		LogLevel:       firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:       DefaultHTTPPort,
		WebhookURL:     strings.TrimRight(strings.TrimSpace(os.Getenv(KeyWebhookURL)), "/"),
		SessionBackend: firstNonEmpty(normalizeEnv(os.Getenv(KeySessionBackend)), DefaultSessionBackend),
		RedisURL:       strings.TrimSpace(os.Getenv(KeyRedisURL)),
		MongoURI:       strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:        firstNonEmpty(strings.TrimSpace(os.Getenv(KeyMongoDB)), DefaultMongoDB),
		BTCWallet:      firstNonEmpty(strings.TrimSpace(os.Getenv(KeyBTCWallet)), DefaultBTCWallet),
		USDTWallet:     firstNonEmpty(strings.TrimSpace(os.Getenv(KeyUSDTWallet)), DefaultUSDTWallet),
		SupportHandle:  firstNonEmpty(strings.TrimSpace(os.Getenv(KeySupportHandle)), DefaultSupportHandle),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	if cfg.APIBase == "" {
		missing = append(missing, KeyAPIBase)
	}

	switch cfg.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			missing = append(missing, KeyRedisURL)
		}
	case BackendMongo:
		if cfg.MongoURI == "" {
			missing = append(missing, KeyMongoURI)
		}
	default:
		return Config{}, fmt.Errorf("invalid %s: must be %q, %q, or %q",
			KeySessionBackend, BackendMemory, BackendRedis, BackendMongo)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// UseWebhook reports whether updates arrive over an HTTP callback instead of
// long polling.
func (c Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// FormatRedacted renders the resolved configuration with secrets masked, for
// -config-only diagnostics.
func FormatRedacted(cfg Config) string {
	var b strings.Builder

	write := func(key, value string) {
		fmt.Fprintf(&b, "%s=%s\n", key, value)
	}

	write(KeyAppEnv, cfg.AppEnv)
	write(KeyTelegramToken, redact(cfg.TelegramToken))
	write(KeyAPIBase, cfg.APIBase)
	write(KeyLogLevel, cfg.LogLevel)
	write(KeyHTTPPort, strconv.Itoa(cfg.HTTPPort))
	write(KeyWebhookURL, cfg.WebhookURL)
	write(KeySessionBackend, cfg.SessionBackend)
	write(KeyRedisURL, redact(cfg.RedisURL))
	write(KeyMongoURI, redact(cfg.MongoURI))
	write(KeyMongoDB, cfg.MongoDB)
	write(KeyBTCWallet, cfg.BTCWallet)
	write(KeyUSDTWallet, cfg.USDTWallet)
	write(KeySupportHandle, cfg.SupportHandle)

	return strings.TrimRight(b.String(), "\n")
}

func redact(value string) string {
	if value == "" {
		return ""
	}

	return "***"
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
