package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/becomeliminal/nim-wallet/core"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleOAuth runs the authorization-code flow against Google.
type GoogleOAuth struct {
	config      *oauth2.Config
	userInfoURL string
}

// GoogleOption configures GoogleOAuth.
type GoogleOption func(*GoogleOAuth)

// WithEndpoints points the flow at other token and userinfo endpoints.
func WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) GoogleOption {
	return func(g *GoogleOAuth) {
		g.config.Endpoint = endpoint
		g.userInfoURL = userInfoURL
	}
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *GoogleOAuth {
	g := &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL is where the client sends the user to sign in.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange trades an authorization code for the signed-in user's identity.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (core.GoogleIdentity, error) {
	if code == "" {
		return core.GoogleIdentity{}, &core.InvalidArgumentsError{Msg: "missing authorization code"}
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return core.GoogleIdentity{}, &core.UnauthorizedError{Msg: "code exchange failed: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return core.GoogleIdentity{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return core.GoogleIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.GoogleIdentity{}, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return core.GoogleIdentity{}, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return core.GoogleIdentity{}, fmt.Errorf("unmarshal userinfo: %w", err)
	}
	if info.Sub == "" || info.Email == "" {
		return core.GoogleIdentity{}, &core.UnauthorizedError{Msg: "userinfo is missing subject or email"}
	}
	if !info.EmailVerified {
		return core.GoogleIdentity{}, &core.UnauthorizedError{Msg: "email is not verified"}
	}

	return core.GoogleIdentity{Subject: info.Sub, Email: info.Email, Name: info.Name}, nil
}
