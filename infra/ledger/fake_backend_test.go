package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	addrAA       = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrBB       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

// Well known development key, never used outside tests.
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, CallTimeout: time.Second}

// fakeBackend serves contract calls from packed outputs keyed by method name.
// Methods not overridden panic through the nil embedded interface.
type fakeBackend struct {
	bind.ContractBackend

	mu          sync.Mutex
	head        uint64
	blockErrs   []error
	blockCalls  int
	outputs     map[string][]byte
	callErr     error
	logs        []types.Log
	filterCalls []ethereum.FilterQuery
	receipts    map[common.Hash]*types.Receipt

	// holdReceipts makes TransactionReceipt block until its context ends.
	holdReceipts bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		head:     100,
		outputs:  make(map[string][]byte),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls++
	if len(f.blockErrs) > 0 {
		err := f.blockErrs[0]
		f.blockErrs = f.blockErrs[1:]
		return 0, err
	}
	return f.head, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	if len(msg.Data) < 4 {
		return nil, errors.New("short call data")
	}
	method, err := contractABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	out, ok := f.outputs[method.Name]
	if !ok {
		return nil, fmt.Errorf("execution reverted: no output for %s", method.Name)
	}
	return out, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterCalls = append(f.filterCalls, q)

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber < q.FromBlock.Uint64() || l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && l.Topics[0] != q.Topics[0][0] {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.holdReceipts {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) setOutput(t *testing.T, method string, values ...any) {
	t.Helper()
	packed, err := contractABI.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	f.outputs[method] = packed
}

func newTestClient(t *testing.T, backend Backend, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		ContractAddress: contractAddr.Hex(),
		ChainID:         1337,
		Retry:           fastRetry,
		LogChunkSize:    10,
		PollInterval:    time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	client, err := NewClient(backend, cfg)
	require.NoError(t, err)
	return client
}

func createdLog(t *testing.T, id uint64, creator common.Address, name string, qty int64, block uint64) types.Log {
	t.Helper()
	data, err := contractABI.Events[string(domain.EventItemCreated)].Inputs.NonIndexed().Pack(
		name, big.NewInt(qty), big.NewInt(int64(1700000000+block)))
	require.NoError(t, err)
	return types.Log{
		Address:     contractAddr,
		Topics:      []common.Hash{itemCreatedID, common.BigToHash(new(big.Int).SetUint64(id)), common.BytesToHash(creator.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + id)),
	}
}

func transferredLog(t *testing.T, id uint64, from, to common.Address, qty int64, block uint64, index uint) types.Log {
	t.Helper()
	data, err := contractABI.Events[string(domain.EventItemTransferred)].Inputs.NonIndexed().Pack(
		big.NewInt(qty), big.NewInt(int64(1700000000+block)))
	require.NoError(t, err)
	return types.Log{
		Address: contractAddr,
		Topics: []common.Hash{
			itemTransferredID,
			common.BigToHash(new(big.Int).SetUint64(id)),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + id + 500)),
	}
}
