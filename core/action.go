package core

// ActionType names a wallet-side operation the client must execute.
type ActionType string

const (
	ActionSendTransaction ActionType = "SEND_TRANSACTION"
	ActionFetchBalance    ActionType = "FETCH_BALANCE"
	ActionFetchHistory    ActionType = "FETCH_HISTORY"
	ActionWrap            ActionType = "WRAP"
	ActionUnwrap          ActionType = "UNWRAP"
)

// ActionDetails is the executable instruction the dispatcher hands back to
// the client alongside the reply text.
type ActionDetails struct {
	Type             ActionType `json:"type"`
	RecipientEmail   string     `json:"recipientEmail,omitempty"`
	RecipientAddress string     `json:"recipientAddress,omitempty"`
	Amount           string     `json:"amount,omitempty"`
	Currency         string     `json:"currency,omitempty"`
}

// ActionResult is what the wallet handler reports after executing an action.
type ActionResult struct {
	Success         bool        `json:"success"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}
