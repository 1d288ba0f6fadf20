package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
)

var errRPC = errors.New("rpc: connection refused")

var (
	addrAA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrBB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	addrCC = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type balanceKey struct {
	id      uint64
	account common.Address
}

// fakeLedger is an in-memory Ledger. Fields are set up before use and only
// read afterwards; the fail* maps inject errors.
type fakeLedger struct {
	head       uint64
	events     []domain.RawEvent
	tokens     map[uint64]domain.Token
	balances   map[balanceKey]domain.Quantity
	attributes map[uint64][]domain.Attribute
	pending    map[common.Address][]uint64
	records    map[uint64]domain.TransferRecord

	failQuery      map[domain.EventKind]error
	failToken      map[uint64]error
	failAttributes map[uint64]error
	failPending    map[common.Address]error
	failRecord     map[uint64]error

	// blockHook runs at the start of CurrentBlock when set.
	blockHook func(ctx context.Context) error

	mu      sync.Mutex
	queries []domain.EventFilter
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		head:           100,
		tokens:         make(map[uint64]domain.Token),
		balances:       make(map[balanceKey]domain.Quantity),
		attributes:     make(map[uint64][]domain.Attribute),
		pending:        make(map[common.Address][]uint64),
		records:        make(map[uint64]domain.TransferRecord),
		failQuery:      make(map[domain.EventKind]error),
		failToken:      make(map[uint64]error),
		failAttributes: make(map[uint64]error),
		failPending:    make(map[common.Address]error),
		failRecord:     make(map[uint64]error),
	}
}

var txCounter uint64

func nextTxHash() common.Hash {
	txCounter++
	return common.BigToHash(new(big.Int).SetUint64(txCounter))
}

// mint registers a token, its ItemCreated event and the creator's balance.
func (f *fakeLedger) mint(id uint64, name string, creator common.Address, balance domain.Quantity, block uint64) {
	createdAt := time.Unix(int64(1700000000+block), 0).UTC()
	f.tokens[id] = domain.Token{ID: id, Name: name, Creator: creator, CreatedAt: createdAt}
	f.balances[balanceKey{id, creator}] = balance
	f.events = append(f.events, domain.RawEvent{
		Kind:        domain.EventItemCreated,
		TxHash:      nextTxHash(),
		BlockNumber: block,
		ItemID:      id,
		Name:        name,
		Creator:     creator,
		Quantity:    balance,
		Timestamp:   createdAt,
	})
}

func (f *fakeLedger) transfer(id uint64, from, to common.Address, qty domain.Quantity, block uint64) domain.RawEvent {
	e := domain.RawEvent{
		Kind:        domain.EventItemTransferred,
		TxHash:      nextTxHash(),
		BlockNumber: block,
		ItemID:      id,
		From:        from,
		To:          to,
		Quantity:    qty,
		Timestamp:   time.Unix(int64(1700000000+block), 0).UTC(),
	}
	f.events = append(f.events, e)
	return e
}

func (f *fakeLedger) CurrentBlock(ctx context.Context) (uint64, error) {
	if f.blockHook != nil {
		if err := f.blockHook(ctx); err != nil {
			return 0, err
		}
	}
	return f.head, nil
}

func (f *fakeLedger) QueryEvents(_ context.Context, filter domain.EventFilter, fromBlock, toBlock uint64) ([]domain.RawEvent, error) {
	f.mu.Lock()
	f.queries = append(f.queries, filter)
	f.mu.Unlock()

	if err := f.failQuery[filter.Kind]; err != nil {
		return nil, err
	}

	var out []domain.RawEvent
	for _, e := range f.events {
		if e.Kind != filter.Kind || e.BlockNumber < fromBlock || e.BlockNumber > toBlock {
			continue
		}
		if len(filter.ItemIDs) > 0 && !containsID(filter.ItemIDs, e.ItemID) {
			continue
		}
		if filter.Creator != nil && e.Creator != *filter.Creator {
			continue
		}
		if filter.From != nil && e.From != *filter.From {
			continue
		}
		if filter.To != nil && e.To != *filter.To {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeLedger) Token(_ context.Context, id uint64) (domain.Token, error) {
	if err := f.failToken[id]; err != nil {
		return domain.Token{}, err
	}
	token, ok := f.tokens[id]
	if !ok {
		return domain.Token{}, fmt.Errorf("token %d not found", id)
	}
	return token, nil
}

func (f *fakeLedger) Balance(_ context.Context, id uint64, account common.Address) (domain.Quantity, error) {
	return f.balances[balanceKey{id, account}], nil
}

func (f *fakeLedger) AttributeNames(_ context.Context, id uint64) ([]string, error) {
	if err := f.failAttributes[id]; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.attributes[id]))
	for _, attr := range f.attributes[id] {
		names = append(names, attr.Name)
	}
	return names, nil
}

func (f *fakeLedger) Attribute(_ context.Context, id uint64, name string) (domain.Attribute, error) {
	for _, attr := range f.attributes[id] {
		if attr.Name == name {
			return attr, nil
		}
	}
	return domain.Attribute{}, fmt.Errorf("attribute %q not found", name)
}

func (f *fakeLedger) PendingTransferIDs(_ context.Context, account common.Address) ([]uint64, error) {
	if err := f.failPending[account]; err != nil {
		return nil, err
	}
	return f.pending[account], nil
}

func (f *fakeLedger) TransferRecord(_ context.Context, id uint64) (domain.TransferRecord, error) {
	if err := f.failRecord[id]; err != nil {
		return domain.TransferRecord{}, err
	}
	record, ok := f.records[id]
	if !ok {
		return domain.TransferRecord{}, fmt.Errorf("transfer %d not found", id)
	}
	return record, nil
}

func (f *fakeLedger) addPending(record domain.TransferRecord) {
	f.records[record.ID] = record
	f.pending[record.To] = append(f.pending[record.To], record.ID)
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
