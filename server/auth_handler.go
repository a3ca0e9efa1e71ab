package server

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
)

const (
	stateCookie    = "oauth_state"
	stateCookieTTL = 10 * 60
)

type AuthHandler struct {
	oauth       IdentityProvider
	users       UserService
	tokens      *auth.Tokens
	redirectURL string
	logger      *zap.Logger
}

func NewAuthHandler(oauth IdentityProvider, users UserService, tokens *auth.Tokens, redirectURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		oauth:       oauth,
		users:       users,
		tokens:      tokens,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

// Login starts the Google sign-in flow.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.oauth == nil {
		unavailable(c, "sign-in")
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieTTL, "/auth", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback completes sign-in: it exchanges the code, creates or refreshes the
// profile and hands a session token to the app.
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.oauth == nil {
		unavailable(c, "sign-in")
		return
	}
	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": "sign-in cancelled: " + reason})
		return
	}

	// Flows started from /auth/login carry a state cookie; mobile flows that
	// start elsewhere do not.
	if expected, err := c.Cookie(stateCookie); err == nil {
		if expected != c.Query("state") {
			c.JSON(http.StatusUnauthorized, gin.H{"errors": "invalid oauth state"})
			return
		}
		c.SetCookie(stateCookie, "", -1, "/auth", "", c.Request.TLS != nil, true)
	}

	identity, err := h.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	profile, err := h.users.Login(c.Request.Context(), identity)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(profile.GoogleUserID, profile.Email)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if h.redirectURL == "" {
		c.JSON(http.StatusOK, gin.H{"token": token, "user": profile})
		return
	}

	target, err := url.Parse(h.redirectURL)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	q := target.Query()
	q.Set("token", token)
	q.Set("userId", profile.GoogleUserID)
	q.Set("email", profile.Email)
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}
