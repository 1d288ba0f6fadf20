package domain

import "github.com/ethereum/go-ethereum/common"

// Contract methods. The names are fixed by the deployed contract.
const (
	MethodCreateItem          = "createItem"
	MethodInitiateTransfer    = "initiateTransfer"
	MethodAcceptTransfer      = "acceptTransfer"
	MethodRejectTransfer      = "rejectTransfer"
	MethodProcessItem         = "processItem"
	MethodGetBalance          = "getBalance"
	MethodGetPendingTransfers = "getPendingTransfers"
	MethodTokens              = "tokens"
	MethodTransfers           = "transfers"
	MethodGetAttributeNames   = "getAttributeNames"
	MethodGetAttribute        = "getAttribute"
)

// PendingTransaction is a submitted state-changing call that has not been
// confirmed yet.
type PendingTransaction struct {
	Method string         `json:"method"`
	Hash   common.Hash    `json:"hash"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Data   []byte         `json:"-"`
}

// Receipt is a confirmed, successful state-changing call and the contract
// events it emitted.
type Receipt struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`
	Events      []RawEvent  `json:"events"`
}

// CreatedItemIDs returns the ids of items minted by the transaction.
func (r *Receipt) CreatedItemIDs() []uint64 {
	var ids []uint64
	for _, e := range r.Events {
		if e.Kind == EventItemCreated {
			ids = append(ids, e.ItemID)
		}
	}
	return ids
}

// Participants returns every address named by the receipt's events.
func (r *Receipt) Participants() []common.Address {
	seen := make(map[common.Address]struct{})
	var out []common.Address
	for _, e := range r.Events {
		for _, addr := range e.Addresses() {
			if addr == (common.Address{}) {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}
