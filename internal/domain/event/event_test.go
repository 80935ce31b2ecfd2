package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentCaptured struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
}

func (e paymentCaptured) EventType() string   { return "payment.captured" }
func (e paymentCaptured) AggregateID() string { return e.PaymentID }

func TestSeal(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	env, err := Seal(paymentCaptured{PaymentID: "pay-1", Amount: "99.00"}, now)
	require.NoError(t, err)

	assert.Equal(t, "payment.captured", env.Type)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "pay-1", env.AggregateID)
	assert.Equal(t, now.UTC(), env.OccurredAt)

	var payload paymentCaptured
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "99.00", payload.Amount)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	env, err := Seal(paymentCaptured{PaymentID: "pay-2"}, time.Now())
	require.NoError(t, err)

	content, err := env.Encode()
	require.NoError(t, err)

	decoded, err := Decode(content)
	require.NoError(t, err)
	assert.Equal(t, env.Type, decoded.Type)
	assert.Equal(t, env.Version, decoded.Version)
	assert.Equal(t, env.AggregateID, decoded.AggregateID)
	assert.JSONEq(t, string(env.Payload), string(decoded.Payload))
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}
