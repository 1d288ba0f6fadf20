package dashboard

import (
	"context"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the read side of the ledger client. Every call may fail with a
// transient error; implementations retry before giving up.
type Ledger interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	QueryEvents(ctx context.Context, filter domain.EventFilter, fromBlock, toBlock uint64) ([]domain.RawEvent, error)
	Token(ctx context.Context, id uint64) (domain.Token, error)
	Balance(ctx context.Context, id uint64, account common.Address) (domain.Quantity, error)
	AttributeNames(ctx context.Context, id uint64) ([]string, error)
	Attribute(ctx context.Context, id uint64, name string) (domain.Attribute, error)
	PendingTransferIDs(ctx context.Context, account common.Address) ([]uint64, error)
	TransferRecord(ctx context.Context, id uint64) (domain.TransferRecord, error)
}
