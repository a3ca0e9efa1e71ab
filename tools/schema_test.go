package tools_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/tools"
)

func TestWithThoughtDoesNotMutateInput(t *testing.T) {
	base := tools.ObjectSchema(tools.Schema{"a": tools.StringProperty("a")}, "a")

	out := tools.WithThought(base, true)

	props := base["properties"].(tools.Schema)
	_, has := props["thought"]
	assert.False(t, has, "original schema must stay untouched")
	assert.Equal(t, []string{"a", "thought"}, out["required"])
	assert.Equal(t, []string{"a"}, base["required"])
}

func TestConversationStateSchemaListsEveryAction(t *testing.T) {
	schema := tools.ConversationStateSchema()

	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var decoded struct {
		Properties struct {
			Action struct {
				Enum []string `json:"enum"`
			} `json:"action"`
			Thought map[string]interface{} `json:"thought"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.ElementsMatch(t,
		[]string{"GREETING", "CLARIFY", "SEND", "CHECK_BALANCE", "VIEW_HISTORY", "SWAP", "ERROR"},
		decoded.Properties.Action.Enum)
	assert.NotNil(t, decoded.Properties.Thought)
	assert.NotContains(t, decoded.Required, "thought")
	assert.Contains(t, decoded.Required, "responseMessage")
}
