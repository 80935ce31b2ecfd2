// Package outbox implements the reliable event-propagation core: messages
// appended in the same transaction as the business change they describe, and
// a polling relay that delivers them to subscribers with retry and
// dead-lettering. Delivery is at-least-once; subscribers must tolerate
// redelivery.
package outbox

import (
	"context"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
)

// Message is one durable outbox row. Created only as a side effect of a
// committed transaction that raised domain events; mutated only by the relay.
type Message struct {
	ID          int64
	Type        string
	Content     []byte
	OccurredAt  time.Time
	ProcessedAt *time.Time
	RetryCount  int
	Done        bool
	Error       *string
}

// Store is the slice of persistence the relay needs. FetchPending returns
// done = false rows oldest first; SaveResults persists a whole run's row
// updates in one batch.
type Store interface {
	FetchPending(ctx context.Context, limit int) ([]Message, error)
	SaveResults(ctx context.Context, messages []Message) error
}

// Handler consumes one delivered event. Returning an error counts against
// the message's retry budget.
type Handler func(ctx context.Context, env event.Envelope) error
