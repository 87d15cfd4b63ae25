package services

import (
	"context"

	"ledger/internal/amqp"
)

// Publisher announces committed transaction changes. *amqp.Client
// satisfies it.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, event amqp.TransactionEvent) error
}
