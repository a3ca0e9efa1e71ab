package tools

import "github.com/becomeliminal/nim-wallet/core"

// ParametersSchema describes core.Parameters.
func ParametersSchema() Schema {
	return ObjectSchema(Schema{
		"recipientEmail":   StringProperty("Recipient email, or the nickname the user mentioned when it is not an address"),
		"recipientAddress": StringProperty("Recipient wallet address (0x followed by 40 hex characters)"),
		"amount":           StringProperty("Decimal amount as a string, e.g. \"0.5\""),
		"currency":         StringProperty("Token symbol, e.g. AVAX"),
		"fromCurrency":     StringProperty("Token to swap from"),
		"toCurrency":       StringProperty("Token to swap to"),
	})
}

// ConversationStateSchema is the response format the dispatcher requests from
// the model: a core.AgentReply.
func ConversationStateSchema() Schema {
	actions := make([]string, 0, len(core.Actions))
	for _, a := range core.Actions {
		actions = append(actions, string(a))
	}

	schema := ObjectSchema(Schema{
		"action":               StringEnumProperty("What the user wants to do", actions...),
		"parameters":           ParametersSchema(),
		"confirmationRequired": BooleanProperty("True while a send is waiting for the user's yes/no"),
		"confirmationMessage":  StringProperty("Question asking the user to confirm the send"),
		"responseMessage":      StringProperty("Reply shown to the user"),
	}, "action", "parameters", "confirmationRequired", "responseMessage")

	return WithThought(schema, false)
}
