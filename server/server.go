// Package server exposes the assistant backend over HTTP, a chat websocket
// and a gRPC health endpoint.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
	"github.com/becomeliminal/nim-wallet/prices"
	"github.com/becomeliminal/nim-wallet/users"
)

// Route parameter names.
const (
	NicknameKey = "nickname"
	IDKey       = "id"
	UserIDKey   = "userId"
	AddressKey  = "address"
	SymbolKey   = "symbol"
)

// Dispatcher is the agent the chat routes talk to.
type Dispatcher interface {
	ProcessMessage(ctx context.Context, input *engine.Input) (*engine.Output, error)
	ReportResult(ctx context.Context, input *engine.ReportInput) (*engine.Output, error)
	ReportEnrichedResult(ctx context.Context, input *engine.ReportInput) (*engine.Output, error)
}

// ContactService manages the caller's address book.
type ContactService interface {
	AddAddress(ctx context.Context, ownerID, nickname, address string) (*core.Contact, error)
	AddEmail(ctx context.Context, ownerID, nickname, email string) (*core.Contact, error)
	List(ctx context.Context, ownerID string) ([]core.Contact, error)
	GetByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// UserService manages profiles and their wallet addresses.
type UserService interface {
	Login(ctx context.Context, identity core.GoogleIdentity) (*core.UserProfile, error)
	SaveWallet(ctx context.Context, userID string, network core.Network, address string) (*core.UserProfile, error)
	WalletAddress(ctx context.Context, userID string, network core.Network) (string, error)
	CheckAddress(ctx context.Context, address string) (bool, error)
	ByAddress(ctx context.Context, address string) (*core.UserProfile, error)
	Profile(ctx context.Context, userID string) (*core.UserProfile, error)
}

// FaucetService pays testnet funds to a user.
type FaucetService interface {
	Claim(ctx context.Context, userID string) (*users.ClaimResult, error)
}

// PriceService quotes a token price.
type PriceService interface {
	Price(ctx context.Context, symbol, vs string) (*prices.Quote, error)
}

// IdentityProvider signs users in with an OAuth authorization code.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (core.GoogleIdentity, error)
}

// Deps are the services the router is built from. Faucet, Prices and OAuth
// are optional; their routes answer 503 when unset.
type Deps struct {
	Agent    Dispatcher
	Contacts ContactService
	Users    UserService
	Faucet   FaucetService
	Prices   PriceService
	OAuth    IdentityProvider
	Tokens   *auth.Tokens

	// AppRedirectURL receives the session token after sign-in. When empty the
	// callback answers with JSON instead of redirecting.
	AppRedirectURL string

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	Logger *zap.Logger
}

// NewRouter wires every route onto a gin engine.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	agentHandler := NewAgentHandler(deps.Agent, logger)
	contactsHandler := NewContactsHandler(deps.Contacts, logger)
	usersHandler := NewUsersHandler(deps.Users, deps.Faucet, logger)
	authHandler := NewAuthHandler(deps.OAuth, deps.Users, deps.Tokens, deps.AppRedirectURL, logger)
	pricesHandler := NewPricesHandler(deps.Prices, logger)
	wsHandler := NewChatSocket(deps.Agent, deps.Tokens, deps.AllowedOrigins, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/prices/:"+SymbolKey, pricesHandler.Get)
	router.GET("/ws", wsHandler.Serve)

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", authHandler.Login)
		authGroup.GET("/callback", authHandler.Callback)
	}

	usersGroup := router.Group("/users")
	{
		usersGroup.GET("/check-address/:"+AddressKey, usersHandler.CheckAddress)
		usersGroup.GET("/by-address/:"+AddressKey, usersHandler.ByAddress)
		usersGroup.GET("/profile/:"+UserIDKey, usersHandler.Profile)
	}
	router.GET("/wallet/address/:"+UserIDKey, usersHandler.WalletAddress)

	authenticated := router.Group("/", auth.RequireUser(deps.Tokens))
	{
		authenticated.POST("/agent/chat", agentHandler.Chat)
		authenticated.POST("/agent/report_result", agentHandler.ReportResult)
		authenticated.POST("/agent/report_enriched_result", agentHandler.ReportEnrichedResult)

		authenticated.POST("/contacts/address", contactsHandler.AddAddress)
		authenticated.POST("/contacts/email", contactsHandler.AddEmail)
		authenticated.GET("/contacts", contactsHandler.List)
		authenticated.GET("/contacts/nickname/:"+NicknameKey, contactsHandler.GetByNickname)
		authenticated.DELETE("/contacts/:"+IDKey, contactsHandler.Delete)

		authenticated.POST("/wallet/address", usersHandler.SaveWallet)
		authenticated.POST("/faucet", usersHandler.Faucet)
	}

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
