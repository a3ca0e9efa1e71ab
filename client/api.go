// Package client is the wallet side of the assistant: a typed client for the
// backend and the chat session that executes what the assistant decides.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/becomeliminal/nim-wallet/core"
)

// BackendUnavailableMessage is shown in the transcript when the backend
// cannot be reached.
const BackendUnavailableMessage = "Could not connect to the assistant"

// ErrBackendUnavailable wraps transport failures and 5xx answers.
var ErrBackendUnavailable = errors.New(BackendUnavailableMessage)

const defaultTimeout = 60 * time.Second

// Reply is the backend's answer to a chat turn or a reported result.
type Reply struct {
	ResponseMessage string                  `json:"responseMessage"`
	NewState        *core.ConversationState `json:"newState"`
	ActionDetails   *core.ActionDetails     `json:"actionDetails"`
	Data            json.RawMessage         `json:"data,omitempty"`
}

// ChatRequest is one user message with the state the wallet holds.
type ChatRequest struct {
	Message        string                  `json:"message"`
	State          *core.ConversationState `json:"state"`
	ConversationID string                  `json:"conversationId,omitempty"`
	Network        core.Network            `json:"network,omitempty"`
}

// ReportRequest carries the result of an action the wallet executed.
type ReportRequest struct {
	ActionType     core.ActionType         `json:"actionType"`
	Result         core.ActionResult       `json:"result"`
	State          *core.ConversationState `json:"state"`
	ConversationID string                  `json:"conversationId,omitempty"`
}

// FaucetClaim is the backend's receipt for a faucet payout.
type FaucetClaim struct {
	Hash        string    `json:"hash"`
	ExplorerURL string    `json:"explorerUrl"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Recipient   string    `json:"recipient"`
	NextClaimAt time.Time `json:"nextClaimAt"`
}

// API calls the assistant backend over HTTP.
type API struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// APIOption configures an API.
type APIOption func(*API)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.httpClient = c }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) APIOption {
	return func(a *API) { a.token = token }
}

// NewAPI returns a client for the backend at baseURL.
func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetToken replaces the bearer token, e.g. after signing in.
func (a *API) SetToken(token string) {
	a.token = token
}

func (a *API) Chat(ctx context.Context, req ChatRequest) (*Reply, error) {
	var reply Reply
	if err := a.do(ctx, http.MethodPost, "/agent/chat", req, &reply); err != nil {
		return replyOrNil(&reply), err
	}
	return &reply, nil
}

func (a *API) ReportResult(ctx context.Context, req ReportRequest) (*Reply, error) {
	var reply Reply
	if err := a.do(ctx, http.MethodPost, "/agent/report_result", req, &reply); err != nil {
		return replyOrNil(&reply), err
	}
	return &reply, nil
}

func (a *API) ReportEnrichedResult(ctx context.Context, req ReportRequest) (*Reply, error) {
	var reply Reply
	if err := a.do(ctx, http.MethodPost, "/agent/report_enriched_result", req, &reply); err != nil {
		return replyOrNil(&reply), err
	}
	return &reply, nil
}

func (a *API) AddAddressContact(ctx context.Context, nickname, address string) (*core.Contact, error) {
	var contact core.Contact
	body := map[string]string{"nickname": nickname, "address": address}
	if err := a.do(ctx, http.MethodPost, "/contacts/address", body, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (a *API) AddEmailContact(ctx context.Context, nickname, email string) (*core.Contact, error) {
	var contact core.Contact
	body := map[string]string{"nickname": nickname, "email": email}
	if err := a.do(ctx, http.MethodPost, "/contacts/email", body, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (a *API) Contacts(ctx context.Context) ([]core.Contact, error) {
	var out struct {
		Contacts []core.Contact `json:"contacts"`
	}
	if err := a.do(ctx, http.MethodGet, "/contacts", nil, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

func (a *API) ContactByNickname(ctx context.Context, nickname string) (*core.Contact, error) {
	var contact core.Contact
	if err := a.do(ctx, http.MethodGet, "/contacts/nickname/"+url.PathEscape(nickname), nil, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (a *API) DeleteContact(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/contacts/"+url.PathEscape(id), nil, nil)
}

// SaveWallet registers address as the caller's wallet on network.
func (a *API) SaveWallet(ctx context.Context, network core.Network, address string) (*core.UserProfile, error) {
	var profile core.UserProfile
	body := map[string]string{"address": address, "network": string(network)}
	if err := a.do(ctx, http.MethodPost, "/wallet/address", body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (a *API) WalletAddress(ctx context.Context, userID string, network core.Network) (string, error) {
	var out struct {
		Address string `json:"address"`
	}
	path := "/wallet/address/" + url.PathEscape(userID) + "?network=" + url.QueryEscape(string(network))
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Address, nil
}

func (a *API) ClaimFaucet(ctx context.Context) (*FaucetClaim, error) {
	var claim FaucetClaim
	if err := a.do(ctx, http.MethodPost, "/faucet", nil, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	// Unavailable chat answers still carry a reply for the transcript.
	if out != nil {
		_ = json.Unmarshal(data, out)
	}
	return statusError(resp.StatusCode, data)
}

func statusError(status int, body []byte) error {
	var payload struct {
		Errors string `json:"errors"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Errors
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusBadRequest:
		return &core.InvalidArgumentsError{Msg: msg}
	case status == http.StatusUnauthorized:
		return &core.UnauthorizedError{Msg: msg}
	case status == http.StatusNotFound:
		return &core.NotFoundError{Msg: msg}
	case status == http.StatusConflict:
		return &core.DuplicateNicknameError{Msg: msg}
	case status == http.StatusTooManyRequests:
		return &core.CooldownError{Msg: msg}
	case status >= 500:
		return fmt.Errorf("%w: backend returned %d: %s", ErrBackendUnavailable, status, msg)
	default:
		return fmt.Errorf("backend returned %d: %s", status, msg)
	}
}

func replyOrNil(r *Reply) *Reply {
	if r.ResponseMessage == "" {
		return nil
	}
	return r
}
