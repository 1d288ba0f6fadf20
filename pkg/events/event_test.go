package events

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Envelope(t *testing.T) {
	headers := Headers{TraceID: GenerateTraceID(), CorrelationID: GenerateCorrelationID(), Service: "olivetrace"}

	event := NewEvent(LedgerItemCreatedEvent, EventVersionV1, LedgerItemCreatedPayload{ItemID: 1}, headers)

	assert.Equal(t, "ledger.item.created.v1", event.GetRoutingKey())
	assert.Equal(t, "olivetrace", event.Source)
	assert.Equal(t, headers.TraceID, event.TraceID)
	assert.NotEqual(t, event.TraceID, event.CorrelationID)
}

func TestDecodePayload_AfterBrokerRoundTrip(t *testing.T) {
	sent := NewEvent(LedgerItemTransferredEvent, EventVersionV1, LedgerItemTransferredPayload{
		ItemID:     7,
		From:       "0x00000000000000000000000000000000000000aa",
		To:         "0x00000000000000000000000000000000000000bb",
		Quantity:   1500,
		QuantityKg: decimal.New(1500, -3),
	}, Headers{})
	body, err := sent.ToJSON()
	require.NoError(t, err)

	var received Event
	require.NoError(t, json.Unmarshal(body, &received))

	var payload LedgerItemTransferredPayload
	require.NoError(t, DecodePayload(&received, &payload))
	assert.Equal(t, uint64(7), payload.ItemID)
	assert.Equal(t, int64(1500), payload.Quantity)
	assert.True(t, decimal.RequireFromString("1.5").Equal(payload.QuantityKg))
}

func TestDecodePayload_Malformed(t *testing.T) {
	event := &Event{Payload: map[string]any{"itemId": "seven"}}

	var payload LedgerItemCreatedPayload
	err := DecodePayload(event, &payload)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed payload")
}
