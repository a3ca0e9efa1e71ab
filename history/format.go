package history

import (
	"fmt"
	"strings"

	"github.com/becomeliminal/nim-wallet/core"
)

const displayTimeLayout = "02/01/2006 15:04"

// FormatForDisplay renders entries, newest first, one line each.
func FormatForDisplay(items []core.Transaction) string {
	if len(items) == 0 {
		return "No tienes transacciones registradas."
	}

	var b strings.Builder
	b.WriteString("Tus transacciones recientes:\n")
	for i, tx := range items {
		fmt.Fprintf(&b, "%d. %s %s %s %s %s", i+1,
			verb(tx.Type), tx.Amount, tx.Currency, preposition(tx.Type), counterparty(tx))
		fmt.Fprintf(&b, " (%s)", tx.Timestamp.Local().Format(displayTimeLayout))
		if !tx.Confirmed && tx.Type != core.TxReceived {
			b.WriteString(" [sin confirmar]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func verb(t core.TxType) string {
	switch t {
	case core.TxReceived:
		return "Recibiste"
	case core.TxPending:
		return "Pendiente:"
	default:
		return "Enviaste"
	}
}

func preposition(t core.TxType) string {
	if t == core.TxReceived {
		return "de"
	}
	return "a"
}

func counterparty(tx core.Transaction) string {
	nickname, address := tx.RecipientNickname, tx.Recipient
	if tx.Type == core.TxReceived {
		nickname, address = tx.SenderNickname, tx.Sender
	}
	if address == "" {
		address = core.UnknownCounterparty
	}
	if nickname != "" {
		return fmt.Sprintf("%s (%s)", nickname, shortAddress(address))
	}
	return shortAddress(address)
}

// shortAddress abbreviates 0x addresses to 0x1234…abcd.
func shortAddress(addr string) string {
	if !core.IsAddress(addr) {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
