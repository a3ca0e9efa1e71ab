package core

import "time"

// TxType classifies a history entry from the wallet owner's perspective.
type TxType string

const (
	TxSent     TxType = "sent"
	TxReceived TxType = "received"
	TxPending  TxType = "pending"
)

// TxSource records which mechanism produced a history entry.
type TxSource string

const (
	SourceLocal TxSource = "local" // written by the wallet after a send
	SourcePoll  TxSource = "poll"  // synthesized from a balance delta
	SourceScan  TxSource = "scan"  // found by the block scanner
)

// UnknownCounterparty is used when the sender of an incoming transfer
// could not be attributed.
const UnknownCounterparty = "Unknown"

// Transaction is one entry of the local, capped transaction history.
type Transaction struct {
	ID                string    `json:"id"`
	Hash              string    `json:"hash,omitempty"`
	Type              TxType    `json:"type"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	Recipient         string    `json:"recipient,omitempty"`
	Sender            string    `json:"sender,omitempty"`
	RecipientNickname string    `json:"recipientNickname,omitempty"`
	SenderNickname    string    `json:"senderNickname,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Confirmed         bool      `json:"confirmed"`
	ExplorerURL       string    `json:"explorerUrl,omitempty"`
	Source            TxSource  `json:"source,omitempty"`
}

// Counterparty returns the other side of the transfer.
func (t Transaction) Counterparty() string {
	if t.Type == TxReceived {
		return t.Sender
	}
	return t.Recipient
}
