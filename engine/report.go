package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/llm"
)

// ReportInput is the outcome of an action the wallet executed.
type ReportInput struct {
	UserID         string
	ConversationID string
	ActionType     core.ActionType
	Result         core.ActionResult
	PriorState     *core.ConversationState
}

// ReportResult phrases an executed action's result for the user. The
// conversation state is cleared: a completed action cannot be replayed by
// answering "yes" again.
func (e *Engine) ReportResult(ctx context.Context, input *ReportInput) (*Output, error) {
	return e.report(ctx, input, input.Result.Data)
}

// ReportEnrichedResult works like ReportResult, but history entries are first
// labelled with the owner's contact nicknames.
func (e *Engine) ReportEnrichedResult(ctx context.Context, input *ReportInput) (*Output, error) {
	data := input.Result.Data
	if input.ActionType == core.ActionFetchHistory && e.contacts != nil && data != nil {
		enriched, err := e.enrichHistory(ctx, input.UserID, data)
		if err != nil {
			e.logger.Warn("history enrichment failed", zap.String("user", input.UserID), zap.Error(err))
		} else {
			data = enriched
		}
	}
	return e.report(ctx, input, data)
}

func (e *Engine) report(ctx context.Context, input *ReportInput, data interface{}) (*Output, error) {
	if input.ActionType == "" {
		return nil, &core.InvalidArgumentsError{Msg: "actionType is required"}
	}

	out := &Output{
		Type:            OutputComplete,
		ResponseMessage: input.Result.ResponseMessage,
		Data:            data,
	}
	if !input.Result.Success {
		out.Type = OutputError
		return out, nil
	}

	prompt, err := buildReportPrompt(input, data)
	if err != nil {
		return nil, fmt.Errorf("build report prompt: %w", err)
	}

	text, err := e.provider.Complete(ctx, llm.Request{
		System:      reportSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   400,
		Temperature: e.temperature,
	})
	if err != nil {
		e.logger.Warn("could not phrase result, using wallet message",
			zap.String("action_type", string(input.ActionType)),
			zap.String("error_type", categorizeError(err.Error())),
			zap.Error(err))
		return out, nil
	}
	if text = strings.TrimSpace(text); text != "" {
		out.ResponseMessage = text
	}
	return out, nil
}

func buildReportPrompt(input *ReportInput, data interface{}) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ACTION: %s\n", input.ActionType)
	fmt.Fprintf(&sb, "WALLET MESSAGE: %s\n", input.Result.ResponseMessage)
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "DATA: %s\n", truncate(string(raw), 4000))
	}
	return sb.String(), nil
}

// enrichHistory sets RecipientNickname/SenderNickname on every entry whose
// counterparty matches one of the owner's address contacts.
func (e *Engine) enrichHistory(ctx context.Context, ownerID string, data interface{}) ([]core.Transaction, error) {
	txs, err := decodeTransactions(data)
	if err != nil {
		return nil, err
	}

	contacts, err := e.contacts.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	nicknames := make(map[string]string, len(contacts))
	for _, c := range contacts {
		if c.Type == core.ContactAddress {
			nicknames[strings.ToLower(c.Value)] = c.Nickname
		}
	}

	for i := range txs {
		if name, ok := nicknames[strings.ToLower(txs[i].Recipient)]; ok {
			txs[i].RecipientNickname = name
		}
		if name, ok := nicknames[strings.ToLower(txs[i].Sender)]; ok {
			txs[i].SenderNickname = name
		}
	}
	return txs, nil
}

func decodeTransactions(data interface{}) ([]core.Transaction, error) {
	if txs, ok := data.([]core.Transaction); ok {
		out := make([]core.Transaction, len(txs))
		copy(out, txs)
		return out, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	var txs []core.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("history is not a transaction list: %w", err)
	}
	return txs, nil
}
