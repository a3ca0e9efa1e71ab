package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
)

type staticContacts []core.Contact

func (s staticContacts) List(ctx context.Context, ownerID string) ([]core.Contact, error) {
	return s, nil
}

func TestReportResult_PhrasesSuccessAndClearsState(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Listo, enviaste 1 AVAX a mamá."}}
	e := engine.NewEngine(p)

	out, err := e.ReportResult(context.Background(), &engine.ReportInput{
		UserID:     "u1",
		ActionType: core.ActionSendTransaction,
		Result:     core.ActionResult{Success: true, ResponseMessage: "Transacción enviada: 0xabc", Data: map[string]string{"hash": "0xabc"}},
		PriorState: awaitingSend(momAddr, "1"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Listo, enviaste 1 AVAX a mamá.", out.ResponseMessage)
	assert.Nil(t, out.NewState)
	assert.Nil(t, out.ActionDetails)
	require.Len(t, p.requests, 1)
	assert.Contains(t, p.requests[0].Prompt, "0xabc")
}

func TestReportResult_FailureIsPassedThrough(t *testing.T) {
	p := &scriptedProvider{}
	e := engine.NewEngine(p)

	msg := "Error al procesar la solicitud: insufficient funds"
	out, err := e.ReportResult(context.Background(), &engine.ReportInput{
		UserID:     "u1",
		ActionType: core.ActionSendTransaction,
		Result:     core.ActionResult{Success: false, ResponseMessage: msg},
	})
	require.NoError(t, err)

	assert.Equal(t, msg, out.ResponseMessage)
	assert.Empty(t, p.requests)
}

func TestReportResult_ProviderFailureFallsBack(t *testing.T) {
	p := &scriptedProvider{err: errors.New("timeout")}
	e := engine.NewEngine(p)

	out, err := e.ReportResult(context.Background(), &engine.ReportInput{
		UserID:     "u1",
		ActionType: core.ActionFetchBalance,
		Result:     core.ActionResult{Success: true, ResponseMessage: "Tu saldo es 3.2 AVAX"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tu saldo es 3.2 AVAX", out.ResponseMessage)
}

func TestReportResult_RequiresActionType(t *testing.T) {
	e := engine.NewEngine(&scriptedProvider{})

	_, err := e.ReportResult(context.Background(), &engine.ReportInput{UserID: "u1"})
	assert.ErrorIs(t, err, &core.InvalidArgumentsError{})
}

func TestReportEnrichedResult_LabelsContacts(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Recibiste 2 AVAX de mamá."}}
	e := engine.NewEngine(p, engine.WithContacts(staticContacts{
		{Nickname: "mamá", Type: core.ContactAddress, Value: momAddr},
		{Nickname: "jefe", Type: core.ContactEmail, Value: "boss@example.com"},
	}))

	history := []interface{}{
		map[string]interface{}{"id": "1", "type": "received", "amount": "2", "currency": "AVAX", "sender": "0x1111111111111111111111111111111111111111", "timestamp": time.Now().Format(time.RFC3339)},
		map[string]interface{}{"id": "2", "type": "sent", "amount": "1", "currency": "AVAX", "recipient": otherAddr, "timestamp": time.Now().Format(time.RFC3339)},
	}

	out, err := e.ReportEnrichedResult(context.Background(), &engine.ReportInput{
		UserID:     "u1",
		ActionType: core.ActionFetchHistory,
		Result:     core.ActionResult{Success: true, ResponseMessage: "2 transacciones", Data: history},
	})
	require.NoError(t, err)

	txs, ok := out.Data.([]core.Transaction)
	require.True(t, ok)
	require.Len(t, txs, 2)
	assert.Equal(t, "mamá", txs[0].SenderNickname)
	assert.Empty(t, txs[1].RecipientNickname)
	assert.Contains(t, p.requests[0].Prompt, "mamá")
}
