package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Domain constants
const (
	LedgerDomain   = "ledger"
	LedgerExchange = "olivetrace.ledger"
)

// Event names
const (
	LedgerItemCreatedEvent     = "ledger.item.created"
	LedgerItemTransferredEvent = "ledger.item.transferred"
)

// Event versions
const (
	EventVersionV1 = "v1"
)

// LedgerItemCreatedPayload represents the payload for ledger.item.created
type LedgerItemCreatedPayload struct {
	ItemID      uint64          `json:"itemId"`
	Name        string          `json:"name"`
	Creator     string          `json:"creator"`
	Quantity    int64           `json:"quantity"`
	QuantityKg  decimal.Decimal `json:"quantityKg"`
	TxHash      string          `json:"txHash"`
	LogIndex    uint            `json:"logIndex"`
	BlockNumber uint64          `json:"blockNumber"`
	Timestamp   time.Time       `json:"timestamp"`
}

// LedgerItemTransferredPayload represents the payload for ledger.item.transferred
type LedgerItemTransferredPayload struct {
	ItemID      uint64          `json:"itemId"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Quantity    int64           `json:"quantity"`
	QuantityKg  decimal.Decimal `json:"quantityKg"`
	TxHash      string          `json:"txHash"`
	LogIndex    uint            `json:"logIndex"`
	BlockNumber uint64          `json:"blockNumber"`
	Timestamp   time.Time       `json:"timestamp"`
}

// DecodePayload converts the loosely typed payload of a received event into v.
func DecodePayload(event *Event, v any) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("malformed payload - marshal failed: %w", err)
	}
	if err := json.Unmarshal(payloadBytes, v); err != nil {
		return fmt.Errorf("malformed payload - unmarshal failed: %w", err)
	}
	return nil
}
