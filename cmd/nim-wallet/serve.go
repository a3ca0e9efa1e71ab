package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/config"
	"github.com/becomeliminal/nim-wallet/contacts"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
	"github.com/becomeliminal/nim-wallet/llm"
	"github.com/becomeliminal/nim-wallet/memory"
	"github.com/becomeliminal/nim-wallet/memory/embedder/genai"
	"github.com/becomeliminal/nim-wallet/memory/store/chromem"
	"github.com/becomeliminal/nim-wallet/prices"
	"github.com/becomeliminal/nim-wallet/resolver"
	"github.com/becomeliminal/nim-wallet/retry"
	"github.com/becomeliminal/nim-wallet/server"
	"github.com/becomeliminal/nim-wallet/storage"
	"github.com/becomeliminal/nim-wallet/storage/firestore"
	"github.com/becomeliminal/nim-wallet/storage/sqlite"
	"github.com/becomeliminal/nim-wallet/users"
	"github.com/becomeliminal/nim-wallet/wallet"
)

const memoryDimensions = 256

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, found, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := newLogger(cfg.LogLevel, cfg.Development); err != nil {
		return err
	}
	if !found {
		logger.Info("no .env file found, using environment only")
	}

	contactRepo, userRepo, closeStore, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	userService := users.NewService(userRepo, logger)
	contactService := contacts.NewService(contactRepo, userRepo, logger)

	cachedUsers, err := resolver.NewCachedUsers(userRepo, resolver.DefaultUserCacheTTL)
	if err != nil {
		return err
	}
	defer cachedUsers.Close()

	provider, err := llm.New(ctx, cfg.LLMProvider, llm.Keys{
		Gemini:     cfg.GeminiAPIKey,
		OpenRouter: cfg.OpenRouterAPIKey,
		Anthropic:  cfg.AnthropicAPIKey,
	}, cfg.LLMModel)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	provider = llm.WithRetry(provider, retry.Config{
		MaxAttempts: cfg.LLMMaxAttempts,
		Timeout:     cfg.LLMTimeout,
	}, logger)

	engineOpts := []engine.Option{
		engine.WithResolver(resolver.New(contactRepo, cachedUsers)),
		engine.WithContacts(contactService),
		engine.WithGuardrails(engine.NewRateGuardrails(engine.GuardrailConfig{PerMinute: cfg.RateLimitPerMin})),
		engine.WithLogger(logger),
	}
	if cfg.MemoryEnabled {
		mem, closeMemory, err := newMemory(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeMemory()
		engineOpts = append(engineOpts, engine.WithMemory(mem))
	}
	agent := engine.NewEngine(provider, engineOpts...)

	tokens, err := auth.NewTokens(cfg.JWTSecret, 0)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	priceClient, err := prices.NewClient(cfg.PriceAPIURL, prices.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("prices: %w", err)
	}

	deps := server.Deps{
		Agent:          agent,
		Contacts:       contactService,
		Users:          userService,
		Prices:         priceClient,
		Tokens:         tokens,
		AppRedirectURL: cfg.AppRedirectURL,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.GoogleClientID != "" {
		deps.OAuth = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, sign-in is disabled")
	}
	if cfg.FaucetKey != "" {
		faucet, err := newFaucet(ctx, cfg, userRepo)
		if err != nil {
			return err
		}
		deps.Faucet = faucet
	}

	app := server.NewApp(server.AppConfig{
		HTTPAddr: cfg.Port,
		GRPCAddr: cfg.GRPCHealthPort,
	}, deps, logger)

	runErr := app.Run(ctx)
	app.Shutdown()
	return runErr
}

func openRepositories(ctx context.Context, cfg config.Server) (storage.ContactRepository, storage.UserRepository, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Warn("close database", zap.Error(err))
			}
		}
		return sqlite.NewContactsRepository(db), sqlite.NewUsersRepository(db), closeFn, nil
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("close firestore", zap.Error(err))
			}
		}
		return firestore.NewContactsRepository(client), firestore.NewUsersRepository(client), closeFn, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func newMemory(ctx context.Context, cfg config.Server) (memory.Manager, func(), error) {
	embedder, err := genai.New(ctx, cfg.GeminiAPIKey, "", memoryDimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("memory embedder: %w", err)
	}
	store, err := chromem.New(cfg.MemoryPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("memory store: %w", err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close memory store", zap.Error(err))
		}
	}
	mem := memory.NewSimpleManager(store, embedder, &memory.Config{
		Enabled:            true,
		MinSimilarity:      memory.DefaultConfig.MinSimilarity,
		RetrieveLimit:      memory.DefaultConfig.RetrieveLimit,
		MaxMemoriesPerUser: memory.DefaultConfig.MaxMemoriesPerUser,
	}, logger)
	return mem, closeFn, nil
}

func newFaucet(ctx context.Context, cfg config.Server, userRepo storage.UserRepository) (*users.Faucet, error) {
	amount, err := core.ParseAmount(cfg.FaucetAmount)
	if err != nil {
		return nil, fmt.Errorf("FAUCET_AMOUNT: %w", err)
	}
	account, err := wallet.AccountFromHex(cfg.FaucetKey)
	if err != nil {
		return nil, fmt.Errorf("FAUCET_PRIVATE_KEY: %w", err)
	}

	chain := wallet.ChainFor(core.Testnet, cfg.FujiRPCURL)
	evm, err := wallet.Dial(ctx, chain, wallet.WithEVMLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", chain.RPCURL, err)
	}

	return users.NewFaucet(userRepo, evm, account, chain, users.FaucetConfig{
		Amount:   amount,
		Cooldown: cfg.FaucetCooldown,
	}, logger)
}
