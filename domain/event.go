package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventItemCreated     EventKind = "ItemCreated"
	EventItemTransferred EventKind = "ItemTransferred"
)

// RawEvent is a decoded contract log. Only the fields of its kind are set:
// Name and Creator for ItemCreated, From and To for ItemTransferred.
type RawEvent struct {
	Kind        EventKind      `json:"kind"`
	TxHash      common.Hash    `json:"txHash"`
	LogIndex    uint           `json:"logIndex"`
	BlockNumber uint64         `json:"blockNumber"`
	ItemID      uint64         `json:"itemId"`
	Name        string         `json:"name,omitempty"`
	Creator     common.Address `json:"creator"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Quantity    Quantity       `json:"quantity"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Key identifies the log a RawEvent came from.
func (e RawEvent) Key() string {
	return fmt.Sprintf("%s:%s:%d", e.Kind, e.TxHash.Hex(), e.LogIndex)
}

// Addresses returns the participants named by the event.
func (e RawEvent) Addresses() []common.Address {
	if e.Kind == EventItemCreated {
		return []common.Address{e.Creator}
	}
	return []common.Address{e.From, e.To}
}

// AsTransfer builds the unresolved transfer described by an ItemTransferred
// event.
func (e RawEvent) AsTransfer() Transfer {
	return Transfer{
		ItemID:      e.ItemID,
		From:        e.From,
		To:          e.To,
		Quantity:    e.Quantity,
		InitiatedAt: e.Timestamp,
		Status:      TransferCompleted,
		TxHash:      e.TxHash,
		BlockNumber: e.BlockNumber,
	}
}

// EventFilter selects logs of one kind. Nil address fields match anything.
type EventFilter struct {
	Kind    EventKind
	ItemIDs []uint64
	Creator *common.Address
	From    *common.Address
	To      *common.Address
}
