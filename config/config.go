// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server is the backend configuration read from the environment.
type Server struct {
	Port           string `env:"PORT"`
	GRPCHealthPort string `env:"GRPC_HEALTH_PORT"`
	LogLevel       string `env:"LOG_LEVEL"`
	Development    bool   `env:"LOG_DEVELOPMENT"`

	LLMProvider      string        `env:"LLM_PROVIDER"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	OpenRouterAPIKey string        `env:"OPENROUTER_API_KEY"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	LLMModel         string        `env:"LLM_MODEL"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT"`
	LLMMaxAttempts   int           `env:"LLM_MAX_ATTEMPTS"`

	StoreBackend     string `env:"STORE_BACKEND"`
	SQLitePath       string `env:"SQLITE_PATH"`
	FirestoreProject string `env:"FIRESTORE_PROJECT"`

	JWTSecret          string   `env:"JWT_SECRET,required,notEmpty"`
	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string   `env:"GOOGLE_REDIRECT_URL"`
	AppRedirectURL     string   `env:"APP_REDIRECT_URL"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	FujiRPCURL     string        `env:"FUJI_RPC_URL"`
	FaucetKey      string        `env:"FAUCET_PRIVATE_KEY"`
	FaucetAmount   string        `env:"FAUCET_AMOUNT"`
	FaucetCooldown time.Duration `env:"FAUCET_COOLDOWN"`

	PriceAPIURL string `env:"PRICE_API_URL"`

	MemoryEnabled   bool   `env:"MEMORY_ENABLED"`
	MemoryPath      string `env:"MEMORY_PATH"`
	RateLimitPerMin int    `env:"RATE_LIMIT_PER_MIN"`
}

// Client is the wallet-side configuration read from the environment.
type Client struct {
	BackendURL    string        `env:"BACKEND_URL"`
	Network       string        `env:"NETWORK"`
	RPCURL        string        `env:"RPC_URL"`
	KVPath        string        `env:"KV_PATH"`
	EncryptionKey string        `env:"KV_ENCRYPTION_KEY"`
	Token         string        `env:"USER_TOKEN"`
	PollInterval  time.Duration `env:"POLL_INTERVAL"`
	PollEpsilon   string        `env:"POLL_EPSILON"`
	ScanInterval  time.Duration `env:"SCAN_INTERVAL"`
	LogLevel      string        `env:"LOG_LEVEL"`
}

// LoadServer reads the backend configuration. The boolean reports whether a
// .env file was found; a missing one is not an error.
func LoadServer() (Server, bool, error) {
	found := loadDotEnv()

	cfg := Server{
		Port:            ":8080",
		GRPCHealthPort:  ":9090",
		LogLevel:        "info",
		LLMProvider:     "gemini",
		LLMTimeout:      30 * time.Second,
		LLMMaxAttempts:  3,
		StoreBackend:    "sqlite",
		SQLitePath:      "nim-wallet.db",
		FaucetAmount:    "0.05",
		FaucetCooldown:  24 * time.Hour,
		PriceAPIURL:     "https://api.coingecko.com/api/v3",
		RateLimitPerMin: 20,
	}

	if err := env.Parse(&cfg); err != nil {
		return Server{}, found, err
	}
	if cfg.StoreBackend == "firestore" && cfg.FirestoreProject == "" {
		return Server{}, found, errors.New("FIRESTORE_PROJECT is required when STORE_BACKEND=firestore")
	}
	return cfg, found, nil
}

// LoadClient reads the wallet-side configuration.
func LoadClient() (Client, bool, error) {
	found := loadDotEnv()

	cfg := Client{
		BackendURL:   "http://localhost:8080",
		Network:      "testnet",
		KVPath:       "wallet.db",
		PollInterval: 30 * time.Second,
		PollEpsilon:  "0.0001",
		ScanInterval: 10 * time.Second,
		LogLevel:     "warn",
	}

	if err := env.Parse(&cfg); err != nil {
		return Client{}, found, err
	}
	return cfg, found, nil
}

func loadDotEnv() bool {
	return godotenv.Load() == nil
}
