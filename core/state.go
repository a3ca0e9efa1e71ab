package core

import "strings"

// Action is the conversation-level intent the assistant settled on for a turn.
// The set is closed: anything outside it is rejected by Action.Valid.
type Action string

const (
	ActionGreeting     Action = "GREETING"
	ActionClarify      Action = "CLARIFY"
	ActionSend         Action = "SEND"
	ActionCheckBalance Action = "CHECK_BALANCE"
	ActionViewHistory  Action = "VIEW_HISTORY"
	ActionSwap         Action = "SWAP"
	ActionError        Action = "ERROR"
)

// Actions lists every valid Action in a stable order.
var Actions = []Action{
	ActionGreeting,
	ActionClarify,
	ActionSend,
	ActionCheckBalance,
	ActionViewHistory,
	ActionSwap,
	ActionError,
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAction normalizes s (case and surrounding space) into an Action.
// The boolean is false when s is not part of the closed set.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	return a, a.Valid()
}

// Parameters carries the slots the assistant has filled so far.
// All fields are optional; amounts stay as decimal strings end to end.
type Parameters struct {
	RecipientEmail   string `json:"recipientEmail,omitempty" firestore:"recipientEmail,omitempty"`
	RecipientAddress string `json:"recipientAddress,omitempty" firestore:"recipientAddress,omitempty"`
	Amount           string `json:"amount,omitempty" firestore:"amount,omitempty"`
	Currency         string `json:"currency,omitempty" firestore:"currency,omitempty"`
	FromCurrency     string `json:"fromCurrency,omitempty" firestore:"fromCurrency,omitempty"`
	ToCurrency       string `json:"toCurrency,omitempty" firestore:"toCurrency,omitempty"`
}

// Recipient returns the raw recipient text, preferring the address slot.
func (p Parameters) Recipient() string {
	if p.RecipientAddress != "" {
		return p.RecipientAddress
	}
	return p.RecipientEmail
}

// Merge returns p with empty fields filled from prior. The recipient slots
// move as a pair: naming any recipient drops both recipient slots of prior.
func (p Parameters) Merge(prior Parameters) Parameters {
	fill := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	merged := Parameters{
		RecipientEmail:   p.RecipientEmail,
		RecipientAddress: p.RecipientAddress,
		Amount:           fill(p.Amount, prior.Amount),
		Currency:         fill(p.Currency, prior.Currency),
		FromCurrency:     fill(p.FromCurrency, prior.FromCurrency),
		ToCurrency:       fill(p.ToCurrency, prior.ToCurrency),
	}
	if p.Recipient() == "" {
		merged.RecipientEmail = prior.RecipientEmail
		merged.RecipientAddress = prior.RecipientAddress
	}
	return merged
}

// ConversationState is the structured record the assistant returns on every
// turn. The client holds it and replays it with the next message.
type ConversationState struct {
	Action               Action     `json:"action"`
	Parameters           Parameters `json:"parameters"`
	ConfirmationRequired bool       `json:"confirmationRequired"`
	ConfirmationMessage  string     `json:"confirmationMessage,omitempty"`
	ResponseMessage      string     `json:"responseMessage"`
}

// Clone returns a copy of s. A nil state clones to nil.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// AwaitingConfirmation reports whether s is a send waiting for a yes/no.
func (s *ConversationState) AwaitingConfirmation() bool {
	return s != nil && s.Action == ActionSend && s.ConfirmationRequired
}
