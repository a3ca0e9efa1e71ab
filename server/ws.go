package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
)

const (
	wsMaxMessageSize = 64 << 10
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsWriteWait      = 10 * time.Second
)

// Websocket frame types.
const (
	frameMessage  = "message"
	frameResponse = "response"
	frameError    = "error"
)

type wsInbound struct {
	Type           string                  `json:"type"`
	Content        string                  `json:"content"`
	State          *core.ConversationState `json:"state"`
	ConversationID string                  `json:"conversationId,omitempty"`
	Network        string                  `json:"network,omitempty"`
}

type wsOutbound struct {
	Type            string                  `json:"type"`
	ResponseMessage string                  `json:"responseMessage,omitempty"`
	NewState        *core.ConversationState `json:"newState,omitempty"`
	ActionDetails   *core.ActionDetails     `json:"actionDetails,omitempty"`
	Message         string                  `json:"message,omitempty"`
}

// ChatSocket serves the chat dispatcher over a websocket. Browsers cannot set
// headers on upgrade requests, so the bearer token may also come in the
// "token" query parameter.
type ChatSocket struct {
	agent    Dispatcher
	tokens   *auth.Tokens
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewChatSocket returns the websocket chat endpoint. Connections from
// origins outside allowedOrigins are refused.
func NewChatSocket(agent Dispatcher, tokens *auth.Tokens, allowedOrigins []string, logger *zap.Logger) *ChatSocket {
	return &ChatSocket{
		agent:  agent,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Named("ws"),
	}
}

// Serve authenticates the token query parameter or bearer header, upgrades
// the connection and runs chat turns until the peer hangs up.
func (s *ChatSocket) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.session(c.Request.Context(), conn, claims.UserID)
}

func (s *ChatSocket) session(ctx context.Context, conn *websocket.Conn, userID string) {
	logger := s.logger.With(zap.String("user", userID))

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		out := s.handle(ctx, logger, userID, in)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(out); err != nil {
			logger.Debug("write failed", zap.Error(err))
			return
		}
	}
}

func (s *ChatSocket) handle(ctx context.Context, logger *zap.Logger, userID string, in wsInbound) wsOutbound {
	if in.Type != frameMessage {
		return wsOutbound{Type: frameError, Message: "unsupported frame type " + in.Type}
	}
	if strings.TrimSpace(in.Content) == "" {
		return wsOutbound{Type: frameError, Message: "empty message"}
	}
	network, ok := core.ParseNetwork(in.Network)
	if !ok {
		return wsOutbound{Type: frameError, Message: "unknown network " + in.Network}
	}

	out, err := s.agent.ProcessMessage(ctx, &engine.Input{
		UserID:         userID,
		ConversationID: in.ConversationID,
		UserMessage:    in.Content,
		PriorState:     in.State,
		Network:        network,
	})
	if err != nil {
		logger.Warn("agent failed", zap.Error(err))
		if out == nil {
			return wsOutbound{Type: frameError, Message: "internal server error"}
		}
		return wsOutbound{Type: frameError, Message: out.ResponseMessage}
	}

	return wsOutbound{
		Type:            frameResponse,
		ResponseMessage: out.ResponseMessage,
		NewState:        out.NewState,
		ActionDetails:   out.ActionDetails,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}
