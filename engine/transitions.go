package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/becomeliminal/nim-wallet/core"
)

var (
	errMissingSlots     = errors.New("send is missing recipient or amount")
	errNotAwaiting      = errors.New("send was not confirmed by the user")
	errParametersDiffer = errors.New("confirmed send differs from the one shown to the user")
)

const missingSlotsMessage = "Para enviar necesito el destinatario y el monto. ¿A quién y cuánto quieres enviar?"

// validateAction normalizes the model's action tag against the closed set.
// rejected is true when the tag is not a known action.
func validateAction(reply *core.AgentReply) (next *core.ConversationState, rejected bool) {
	action, ok := core.ParseAction(string(reply.Action))
	if !ok {
		return nil, true
	}
	state := reply.ConversationState
	state.Action = action
	if action != core.ActionSend {
		state.ConfirmationRequired = false
		state.ConfirmationMessage = ""
	}
	return &state, false
}

// validateTransition decides whether next may dispatch a transfer. A send is
// only executable when the previous state asked the user to confirm that
// exact send (same recipient, amount and currency).
func validateTransition(prior, next *core.ConversationState) error {
	p := next.Parameters
	if !hasSendSlots(p) {
		return errMissingSlots
	}
	if !prior.AwaitingConfirmation() {
		return errNotAwaiting
	}
	if !sameSend(prior.Parameters, p) {
		return errParametersDiffer
	}
	return nil
}

// hasSendSlots reports whether p names a wallet address and a positive amount.
func hasSendSlots(p core.Parameters) bool {
	if !core.IsAddress(p.RecipientAddress) {
		return false
	}
	_, err := core.ParseAmount(p.Amount)
	return err == nil
}

func sameSend(a, b core.Parameters) bool {
	amountA, errA := core.ParseAmount(a.Amount)
	amountB, errB := core.ParseAmount(b.Amount)
	if errA != nil || errB != nil || !amountA.Equal(amountB) {
		return false
	}
	if core.NormalizeCurrency(a.Currency) != core.NormalizeCurrency(b.Currency) {
		return false
	}
	return strings.EqualFold(a.RecipientAddress, b.RecipientAddress)
}

// recipientText picks the slot holding what the user named as recipient.
func recipientText(p core.Parameters) string {
	if core.IsAddress(p.RecipientAddress) {
		return strings.TrimSpace(p.RecipientAddress)
	}
	if email := strings.TrimSpace(p.RecipientEmail); email != "" {
		return email
	}
	return strings.TrimSpace(p.RecipientAddress)
}

// requireConfirmation turns next into a confirmation request for the same send.
func requireConfirmation(next *core.ConversationState) *core.ConversationState {
	next.ConfirmationRequired = true
	next.ConfirmationMessage = confirmationMessage(next.Parameters)
	next.ResponseMessage = next.ConfirmationMessage
	return next
}

func confirmationMessage(p core.Parameters) string {
	to := p.RecipientAddress
	if p.RecipientEmail != "" && !strings.EqualFold(p.RecipientEmail, p.RecipientAddress) {
		to = fmt.Sprintf("%s (%s)", p.RecipientEmail, p.RecipientAddress)
	}
	return fmt.Sprintf("¿Confirmas el envío de %s %s a %s?", p.Amount, core.NormalizeCurrency(p.Currency), to)
}

// slot names the send parameter a clarification asks for again.
type slot int

const (
	slotAmount slot = iota
	slotRecipient
	slotMissing
)

// clarify asks the user again for the slot that failed and keeps the others,
// so the next turn can fill just that slot. slotMissing keeps whatever slots
// are already usable.
func clarify(next *core.ConversationState, failed slot, message string) *core.ConversationState {
	p := next.Parameters
	kept := core.Parameters{Currency: p.Currency}

	switch failed {
	case slotAmount:
		kept.RecipientAddress = p.RecipientAddress
		kept.RecipientEmail = p.RecipientEmail
	case slotRecipient:
		kept.Amount = p.Amount
	case slotMissing:
		if core.IsAddress(p.RecipientAddress) {
			kept.RecipientAddress = p.RecipientAddress
			kept.RecipientEmail = p.RecipientEmail
		}
		if _, err := core.ParseAmount(p.Amount); err == nil {
			kept.Amount = p.Amount
		}
	}

	return &core.ConversationState{
		Action:          core.ActionClarify,
		Parameters:      kept,
		ResponseMessage: message,
	}
}
