package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
)

type chatRequestBody struct {
	Message        string                  `json:"message" binding:"required"`
	State          *core.ConversationState `json:"state"`
	ConversationID string                  `json:"conversationId"`
	Network        string                  `json:"network"`
}

type reportRequestBody struct {
	ActionType     core.ActionType         `json:"actionType" binding:"required"`
	Result         core.ActionResult       `json:"result"`
	State          *core.ConversationState `json:"state"`
	ConversationID string                  `json:"conversationId"`
}

type AgentHandler struct {
	agent  Dispatcher
	logger *zap.Logger
}

func NewAgentHandler(agent Dispatcher, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		agent:  agent,
		logger: logger,
	}
}

func (h *AgentHandler) Chat(c *gin.Context) {
	var body chatRequestBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errInvalidBody})
		return
	}

	network, ok := core.ParseNetwork(body.Network)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "unknown network " + body.Network})
		return
	}

	out, err := h.agent.ProcessMessage(c.Request.Context(), &engine.Input{
		UserID:         auth.UserID(c),
		ConversationID: body.ConversationID,
		UserMessage:    body.Message,
		PriorState:     body.State,
		Network:        network,
	})
	if err != nil {
		if out == nil {
			handleError(c, h.logger, err)
			return
		}
		// The dispatcher already phrased the failure for the user.
		h.logger.Warn("agent unavailable", zap.String("user", auth.UserID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, out)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *AgentHandler) ReportResult(c *gin.Context) {
	h.report(c, h.agent.ReportResult)
}

func (h *AgentHandler) ReportEnrichedResult(c *gin.Context) {
	h.report(c, h.agent.ReportEnrichedResult)
}

func (h *AgentHandler) report(c *gin.Context, fn func(ctx context.Context, input *engine.ReportInput) (*engine.Output, error)) {
	var body reportRequestBody

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errInvalidBody})
		return
	}

	out, err := fn(c.Request.Context(), &engine.ReportInput{
		UserID:         auth.UserID(c),
		ConversationID: body.ConversationID,
		ActionType:     body.ActionType,
		Result:         body.Result,
		PriorState:     body.State,
	})
	if err != nil {
		if out == nil {
			handleError(c, h.logger, err)
			return
		}
		h.logger.Warn("agent unavailable", zap.String("user", auth.UserID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, out)
		return
	}

	c.JSON(http.StatusOK, out)
}
