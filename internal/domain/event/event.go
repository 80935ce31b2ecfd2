// Package event defines the serialization contract between aggregates that
// raise domain events and the outbox relay that delivers them. An envelope is
// a type tag, a schema version and a JSON payload; subscribers must tolerate
// redelivery (at-least-once contract).
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a domain event pending capture into the outbox.
type Event interface {
	EventType() string
	AggregateID() string
}

// Envelope is the wire form stored in an outbox row and handed to subscribers.
type Envelope struct {
	Type        string          `json:"type"`
	Version     int             `json:"version"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

const schemaVersion = 1

// Seal serializes a domain event into its envelope.
func Seal(ev Event, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal event payload %s: %w", ev.EventType(), err)
	}
	return Envelope{
		Type:        ev.EventType(),
		Version:     schemaVersion,
		AggregateID: ev.AggregateID(),
		OccurredAt:  now.UTC(),
		Payload:     payload,
	}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(content []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event envelope: %w", err)
	}
	return env, nil
}
