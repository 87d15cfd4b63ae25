package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// TransactionEvent announces a committed change to a transaction. It carries
// identifiers only; consumers load the current row themselves.
type TransactionEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transaction_id"`
	WalletID      string    `json:"wallet_id"`
	UserID        string    `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, transactionID, walletID, userID string) TransactionEvent {
	return TransactionEvent{
		Type:          typ,
		TransactionID: transactionID,
		WalletID:      walletID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks a delivery body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionEvent{}, err
	}
	if !e.Type.IsValid() {
		return TransactionEvent{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.TransactionID == "" {
		return TransactionEvent{}, fmt.Errorf("missing transaction_id")
	}
	return e, nil
}
