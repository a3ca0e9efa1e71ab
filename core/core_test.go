package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/becomeliminal/nim-wallet/core"
)

func TestParseAction(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in    string
		want  core.Action
		valid bool
	}{
		{in: "SEND", want: core.ActionSend, valid: true},
		{in: " check_balance ", want: core.ActionCheckBalance, valid: true},
		{in: "VIEW_HISTORY", want: core.ActionViewHistory, valid: true},
		{in: "TRANSFER", valid: false},
		{in: "", valid: false},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := core.ParseAction(tt.in)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParametersMerge(t *testing.T) {
	prior := core.Parameters{RecipientEmail: "ana@example.com", Amount: "1.5", Currency: "AVAX"}
	next := core.Parameters{Amount: "2"}

	merged := next.Merge(prior)

	assert.Equal(t, "ana@example.com", merged.RecipientEmail)
	assert.Equal(t, "2", merged.Amount)
	assert.Equal(t, "AVAX", merged.Currency)
}

func TestParametersMergeNewRecipientDropsOldAddress(t *testing.T) {
	prior := core.Parameters{RecipientEmail: "ana@example.com", RecipientAddress: "0x1111111111111111111111111111111111111111", Amount: "1"}
	next := core.Parameters{RecipientEmail: "bob@example.com"}

	merged := next.Merge(prior)

	assert.Equal(t, "bob@example.com", merged.RecipientEmail)
	assert.Empty(t, merged.RecipientAddress)
	assert.Equal(t, "1", merged.Amount)
}

func TestParseAmount(t *testing.T) {
	d, err := core.ParseAmount("0,5")
	assert.NoError(t, err)
	assert.Equal(t, "0.5", d.String())

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := core.ParseAmount(bad)
		assert.ErrorIs(t, err, &core.InvalidArgumentsError{}, bad)
	}
}

func TestAwaitingConfirmation(t *testing.T) {
	var nilState *core.ConversationState
	assert.False(t, nilState.AwaitingConfirmation())

	s := &core.ConversationState{Action: core.ActionSend, ConfirmationRequired: true}
	assert.True(t, s.AwaitingConfirmation())

	s.ConfirmationRequired = false
	assert.False(t, s.AwaitingConfirmation())
}

func TestIsAddress(t *testing.T) {
	assert.True(t, core.IsAddress("0x1111111111111111111111111111111111111111"))
	assert.True(t, core.IsAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"))
	assert.False(t, core.IsAddress("1111111111111111111111111111111111111111"))
	assert.False(t, core.IsAddress("0x123"))
	assert.False(t, core.IsAddress("ana@example.com"))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, core.IsEmail("ana@example.com"))
	assert.False(t, core.IsEmail("ana@example"))
	assert.False(t, core.IsEmail("ana example.com"))
}

func TestTypedErrorsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &core.NotFoundError{Msg: "contact not found"})

	assert.True(t, errors.Is(err, &core.NotFoundError{}))
	assert.False(t, errors.Is(err, &core.DuplicateNicknameError{}))
}
