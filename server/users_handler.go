package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/core"
)

type saveWalletRequestBody struct {
	Address string `json:"address" binding:"required"`
	Network string `json:"network"`
}

// publicUser is what address lookups reveal about a registered user.
type publicUser struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// UsersHandler serves wallet registration, user lookups and the faucet.
type UsersHandler struct {
	users  UserService
	faucet FaucetService
	logger *zap.Logger
}

func NewUsersHandler(users UserService, faucet FaucetService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		users:  users,
		faucet: faucet,
		logger: logger,
	}
}

func (h *UsersHandler) SaveWallet(c *gin.Context) {
	var body saveWalletRequestBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errInvalidBody})
		return
	}
	network, ok := core.ParseNetwork(body.Network)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "unknown network " + body.Network})
		return
	}

	profile, err := h.users.SaveWallet(c.Request.Context(), auth.UserID(c), network, body.Address)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UsersHandler) WalletAddress(c *gin.Context) {
	userID := c.Param(UserIDKey)
	network, ok := core.ParseNetwork(c.Query("network"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "unknown network " + c.Query("network")})
		return
	}

	address, err := h.users.WalletAddress(c.Request.Context(), userID, network)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": userID, "network": network, "address": address})
}

func (h *UsersHandler) CheckAddress(c *gin.Context) {
	address := c.Param(AddressKey)

	registered, err := h.users.CheckAddress(c.Request.Context(), address)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "registered": registered})
}

func (h *UsersHandler) ByAddress(c *gin.Context) {
	profile, err := h.users.ByAddress(c.Request.Context(), c.Param(AddressKey))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, publicUser{
		UserID: profile.GoogleUserID,
		Email:  profile.Email,
		Name:   profile.Name,
	})
}

func (h *UsersHandler) Profile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.Param(UserIDKey))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UsersHandler) Faucet(c *gin.Context) {
	if h.faucet == nil {
		unavailable(c, "faucet")
		return
	}

	result, err := h.faucet.Claim(c.Request.Context(), auth.UserID(c))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
