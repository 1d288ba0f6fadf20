package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type TransferStatus int

const (
	TransferInTransit TransferStatus = iota
	TransferCompleted
	TransferCancelled
)

var transferStatusNames = map[TransferStatus]string{
	TransferInTransit: "IN_TRANSIT",
	TransferCompleted: "COMPLETED",
	TransferCancelled: "CANCELLED",
}

func (s TransferStatus) String() string {
	if name, ok := transferStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TransferStatus(%d)", int(s))
}

func (s TransferStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TransferStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range transferStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown transfer status %q", name)
}

// TransferStatusFromLedger maps the contract's status enum. The second return
// is false for values outside the enum, in which case TransferCompleted is
// returned.
func TransferStatusFromLedger(v uint8) (TransferStatus, bool) {
	switch v {
	case 0:
		return TransferInTransit, true
	case 1:
		return TransferCompleted, true
	case 2:
		return TransferCancelled, true
	default:
		return TransferCompleted, false
	}
}

// TransferRecord is the contract's stored view of one transfer.
type TransferRecord struct {
	ID       uint64         `json:"id"`
	ItemID   uint64         `json:"itemId"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Quantity Quantity       `json:"quantity"`
	Status   uint8          `json:"status"`
}

// Transfer is a movement of one item reconstructed from a transfer event.
// TransferID is 0 when no pending record could be correlated.
type Transfer struct {
	TransferID  uint64         `json:"transferId"`
	ItemID      uint64         `json:"itemId"`
	ItemName    string         `json:"itemName,omitempty"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Quantity    Quantity       `json:"quantity"`
	InitiatedAt time.Time      `json:"initiatedAt"`
	Status      TransferStatus `json:"status"`
	TxHash      common.Hash    `json:"txHash"`
	BlockNumber uint64         `json:"blockNumber"`
}

// Matches reports whether the record describes the same movement as t.
func (r TransferRecord) Matches(t Transfer) bool {
	return r.ItemID == t.ItemID && r.From == t.From && r.To == t.To
}
