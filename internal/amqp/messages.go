package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"wallet/internal/core"
)

// LedgerEventMessage announces one recorded transaction. It carries the full
// transaction so consumers never need to read the user store.
type LedgerEventMessage struct {
	EventID       string    `json:"event_id"`
	Username      string    `json:"username"`
	TransactionID string    `json:"transaction_id"`
	Kind          core.Kind `json:"kind"`
	Amount        string    `json:"amount"`
	Category      string    `json:"category"`
	OccurredAt    time.Time `json:"occurred_at"`
	Balance       string    `json:"balance"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds the event for a transaction and the balance
// that resulted from it.
func NewLedgerEventMessage(username string, t core.Transaction, balance string) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:       uuid.NewString(),
		Username:      username,
		TransactionID: t.ID,
		Kind:          t.Kind,
		Amount:        t.Amount.String(),
		Category:      t.Category,
		OccurredAt:    t.Timestamp,
		Balance:       balance,
		Timestamp:     time.Now().UTC(),
	}
}

// Validate rejects messages a consumer cannot act on.
func (m *LedgerEventMessage) Validate() error {
	if m.Username == "" || m.TransactionID == "" {
		return errors.New("ledger event missing username or transaction id")
	}
	if err := m.Kind.Validate(); err != nil {
		return err
	}
	if _, err := core.ParseAmount(m.Amount); err != nil {
		return err
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
