package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/llm"
	"github.com/becomeliminal/nim-wallet/memory"
	"github.com/becomeliminal/nim-wallet/resolver"
	"github.com/becomeliminal/nim-wallet/tools"
)

// Fixed replies used when the model cannot be trusted for the turn.
const (
	ApologyMessage     = "Lo siento, no pude entender tu solicitud. ¿Podrías reformularla?"
	UnavailableMessage = "No pude conectar con el asistente. Inténtalo de nuevo en unos minutos."
	BlockedMessage     = "Estás enviando mensajes muy rápido. Espera un momento e inténtalo de nuevo."
)

// RecipientResolver maps free-text recipients to wallet addresses.
type RecipientResolver interface {
	Resolve(ctx context.Context, ownerID, text string, network core.Network) (resolver.Resolution, error)
}

// ContactLister lists an owner's contacts, used to enrich reported history.
type ContactLister interface {
	List(ctx context.Context, ownerID string) ([]core.Contact, error)
}

// Engine is the agent dispatcher: it turns a user message plus the prior
// conversation state into a reply, a new state and, when appropriate, an
// executable action for the wallet.
type Engine struct {
	provider     llm.Provider
	resolver     RecipientResolver // Optional: resolves nicknames and emails on SEND
	contacts     ContactLister     // Optional: enriches reported results
	guardrails   Guardrails        // Optional: rate limiting and circuit breaker
	memory       memory.Manager    // Optional: per-user conversation memory
	logger       *zap.Logger
	systemPrompt string
	temperature  float32
}

// Option configures the engine.
type Option func(*Engine)

// WithResolver sets the recipient resolver used for SEND turns.
func WithResolver(r RecipientResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithContacts sets the contact source used by ReportEnrichedResult.
func WithContacts(c ContactLister) Option {
	return func(e *Engine) {
		e.contacts = c
	}
}

// WithGuardrails sets the guardrails implementation for rate limiting.
func WithGuardrails(g Guardrails) Option {
	return func(e *Engine) {
		e.guardrails = g
	}
}

// WithMemory configures the engine with a memory manager.
func WithMemory(m memory.Manager) Option {
	return func(e *Engine) {
		e.memory = m
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(e *Engine) {
		e.systemPrompt = p
	}
}

// NewEngine creates a new engine around the given provider.
func NewEngine(provider llm.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		logger:       zap.NewNop(),
		systemPrompt: DefaultSystemPrompt,
		temperature:  0.2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input represents one user turn.
type Input struct {
	UserID         string
	ConversationID string
	UserMessage    string
	PriorState     *core.ConversationState
	Network        core.Network // network recipients are resolved on; defaults to mainnet
}

// Output represents the dispatcher's answer for a turn.
type Output struct {
	Type OutputType `json:"-"`

	ResponseMessage string                  `json:"responseMessage"`
	NewState        *core.ConversationState `json:"newState"`
	ActionDetails   *core.ActionDetails     `json:"actionDetails"`

	// Data carries the (possibly enriched) payload of a reported result.
	Data interface{} `json:"data,omitempty"`
}

// OutputType indicates the kind of output from a turn.
type OutputType int

const (
	// OutputComplete is a plain reply with nothing to execute.
	OutputComplete OutputType = iota

	// OutputConfirmationNeeded means a send is waiting for the user's yes.
	OutputConfirmationNeeded

	// OutputAction means ActionDetails must be executed by the wallet.
	OutputAction

	// OutputError means the turn failed and the reply is a fixed message.
	OutputError
)

// ProcessMessage runs one dispatcher turn.
//
// A model reply that is not valid JSON yields ApologyMessage with the prior
// state unchanged and no action. A provider failure is returned as an error
// together with an Output carrying UnavailableMessage.
func (e *Engine) ProcessMessage(ctx context.Context, input *Input) (*Output, error) {
	logger := e.logger.With(zap.String("user", input.UserID))
	prior := input.PriorState.Clone()

	if blocked := e.checkGuardrails(ctx, input.UserID); blocked != nil {
		return blocked, nil
	}

	// === PHASE 0: RETRIEVE MEMORIES ===
	systemPrompt := e.systemPrompt
	if e.memory != nil && input.UserMessage != "" {
		enrichment, err := e.memory.Retrieve(ctx, input.UserID, input.UserMessage)
		if err != nil {
			logger.Warn("memory retrieval failed", zap.Error(err))
		} else if enrichment != "" {
			systemPrompt += "\n\n" + enrichment
		}
	}

	// === PHASE 1: ASK THE MODEL ===
	prompt, err := buildPrompt(prior, input.UserMessage)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Schema:      tools.ConversationStateSchema(),
		Temperature: e.temperature,
	})
	if err != nil {
		e.recordFailure(ctx, input.UserID)
		logger.Error("model call failed",
			zap.String("provider", e.provider.Name()),
			zap.String("error_type", categorizeError(err.Error())),
			zap.Error(err))
		return &Output{
			Type:            OutputError,
			ResponseMessage: UnavailableMessage,
			NewState:        prior,
		}, fmt.Errorf("%s completion: %w", e.provider.Name(), err)
	}
	e.recordSuccess(ctx, input.UserID)

	// === PHASE 2: PARSE ===
	reply, err := parseReply(raw)
	if err != nil {
		logger.Warn("unparseable model reply", zap.Error(err), zap.String("raw", truncate(raw, 200)))
		out := &Output{Type: OutputError, ResponseMessage: ApologyMessage, NewState: prior}
		e.remember(ctx, input, out, "", true)
		return out, nil
	}
	logger.Debug("model reply",
		zap.String("action", string(reply.Action)),
		zap.Bool("confirmation_required", reply.ConfirmationRequired),
		zap.String("thought", reply.Thought))

	// === PHASE 3: VALIDATE ===
	next, rejected := validateAction(reply)
	if rejected {
		logger.Warn("model returned unknown action", zap.String("action", string(reply.Action)))
		out := &Output{Type: OutputError, ResponseMessage: ApologyMessage, NewState: prior}
		e.remember(ctx, input, out, reply.Thought, true)
		return out, nil
	}

	if next.Action == core.ActionSend {
		next = e.prepareSend(ctx, logger, input, prior, next)
	}

	// === PHASE 4: MAP TO ACTION ===
	out := &Output{
		Type:            OutputComplete,
		ResponseMessage: next.ResponseMessage,
		NewState:        next,
		ActionDetails:   mapAction(next),
	}
	switch {
	case out.ActionDetails != nil:
		out.Type = OutputAction
	case next.AwaitingConfirmation():
		out.Type = OutputConfirmationNeeded
		if out.ResponseMessage == "" {
			out.ResponseMessage = next.ConfirmationMessage
		}
	}

	// === PHASE 5: RECORD ===
	e.remember(ctx, input, out, reply.Thought, next.Action == core.ActionError)

	return out, nil
}

// prepareSend merges slots from the prior send, resolves the recipient and
// enforces the confirmation transition. The returned state is what the user
// sees; it is never a dispatchable send unless every check passed.
func (e *Engine) prepareSend(ctx context.Context, logger *zap.Logger, input *Input, prior, next *core.ConversationState) *core.ConversationState {
	if prior != nil && (prior.Action == core.ActionSend || prior.Action == core.ActionClarify) {
		next.Parameters = next.Parameters.Merge(prior.Parameters)
	}

	if amount := next.Parameters.Amount; amount != "" {
		if _, err := core.ParseAmount(amount); err != nil {
			return clarify(next, slotAmount, fmt.Sprintf("El monto %q no es válido: indica una cantidad mayor que cero.", amount))
		}
	}

	if recipient := recipientText(next.Parameters); recipient != "" && !core.IsAddress(recipient) {
		resolved, ok := e.resolveRecipient(ctx, logger, input, recipient)
		if !ok {
			return clarify(next, slotRecipient, fmt.Sprintf(
				"No encontré a %q. Indica una dirección de wallet, el email de un usuario registrado o el apodo de un contacto guardado.",
				recipient))
		}
		next.Parameters.RecipientEmail = recipient
		next.Parameters.RecipientAddress = resolved
	}

	if next.ConfirmationRequired {
		if !hasSendSlots(next.Parameters) {
			return clarify(next, slotMissing, missingSlotsMessage)
		}
		if next.ConfirmationMessage == "" {
			next.ConfirmationMessage = confirmationMessage(next.Parameters)
		}
		return next
	}

	switch err := validateTransition(prior, next); err {
	case nil:
		return next
	case errMissingSlots:
		return clarify(next, slotMissing, missingSlotsMessage)
	default:
		logger.Info("send demoted to confirmation", zap.Error(err))
		return requireConfirmation(next)
	}
}

func (e *Engine) resolveRecipient(ctx context.Context, logger *zap.Logger, input *Input, recipient string) (string, bool) {
	if e.resolver == nil {
		return "", false
	}
	network := input.Network
	if network == "" {
		network = core.Mainnet
	}
	res, err := e.resolver.Resolve(ctx, input.UserID, recipient, network)
	if err != nil {
		logger.Error("recipient resolution failed", zap.String("recipient", recipient), zap.Error(err))
		return "", false
	}
	logger.Debug("recipient resolved",
		zap.String("recipient", recipient),
		zap.String("kind", string(res.Kind)),
		zap.Bool("resolved", res.Resolved()))
	return res.Address, res.Resolved()
}

func (e *Engine) checkGuardrails(ctx context.Context, userID string) *Output {
	if e.guardrails == nil {
		return nil
	}
	result, err := e.guardrails.Check(ctx, userID)
	if err != nil {
		e.logger.Error("guardrails check failed", zap.Error(err))
		return nil
	}
	if !result.Allowed {
		e.logger.Info("request blocked by guardrails", zap.String("user", userID), zap.String("reason", result.Warning))
		return &Output{Type: OutputError, ResponseMessage: BlockedMessage}
	}
	return nil
}

func (e *Engine) recordSuccess(ctx context.Context, userID string) {
	if e.guardrails != nil {
		e.guardrails.RecordSuccess(ctx, userID)
	}
}

func (e *Engine) recordFailure(ctx context.Context, userID string) {
	if e.guardrails != nil {
		e.guardrails.RecordFailure(ctx, userID)
	}
}

func (e *Engine) remember(ctx context.Context, input *Input, out *Output, thought string, failed bool) {
	if e.memory == nil || input.UserMessage == "" {
		return
	}
	action := string(core.ActionError)
	if out.NewState != nil && !failed {
		action = string(out.NewState.Action)
	}
	turn := &memory.Turn{
		ConversationID: input.ConversationID,
		UserMessage:    input.UserMessage,
		Reply:          out.ResponseMessage,
		Action:         action,
		Thought:        thought,
		Dispatched:     out.ActionDetails != nil,
		Failed:         failed,
	}
	if err := e.memory.RecordTurn(ctx, input.UserID, turn); err != nil {
		e.logger.Warn("failed to record turn", zap.Error(err))
	}
}

// mapAction converts a validated state into wallet work, if any.
func mapAction(s *core.ConversationState) *core.ActionDetails {
	switch s.Action {
	case core.ActionSend:
		if s.ConfirmationRequired {
			return nil
		}
		return &core.ActionDetails{
			Type:             core.ActionSendTransaction,
			RecipientEmail:   s.Parameters.RecipientEmail,
			RecipientAddress: s.Parameters.RecipientAddress,
			Amount:           s.Parameters.Amount,
			Currency:         s.Parameters.Currency,
		}
	case core.ActionCheckBalance:
		return &core.ActionDetails{Type: core.ActionFetchBalance, Currency: s.Parameters.Currency}
	case core.ActionViewHistory:
		return &core.ActionDetails{Type: core.ActionFetchHistory}
	}
	return nil
}

// parseReply decodes the model's JSON, tolerating markdown code fences and
// prose around the object.
func parseReply(raw string) (*core.AgentReply, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var reply core.AgentReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Action == "" {
		return nil, fmt.Errorf("reply has no action")
	}
	return &reply, nil
}

// categorizeError maps provider errors to coarse types for logs.
func categorizeError(errMsg string) string {
	if errMsg == "" {
		return "unknown"
	}

	errLower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(errLower, "unauthorized"), strings.Contains(errLower, "api key"), strings.Contains(errLower, "401"):
		return "auth"
	case strings.Contains(errLower, "timeout"), strings.Contains(errLower, "deadline"):
		return "timeout"
	case strings.Contains(errLower, "rate limit"), strings.Contains(errLower, "429"), strings.Contains(errLower, "quota"):
		return "rate_limit"
	case strings.Contains(errLower, "network"), strings.Contains(errLower, "connection"), strings.Contains(errLower, "no such host"):
		return "network_error"
	case strings.Contains(errLower, "empty completion"):
		return "empty_response"
	default:
		return "unknown"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
