package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Backend is the subset of an Ethereum JSON-RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Config struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
	// PrivateKey is a hex encoded secp256k1 key. Without one the client is
	// read-only.
	PrivateKey   string
	Retry        RetryPolicy
	LogChunkSize uint64
	PollInterval time.Duration
}

// Client reads and writes the traceability contract.
type Client struct {
	backend      Backend
	address      common.Address
	contract     *bind.BoundContract
	signer       *bind.TransactOpts
	retry        RetryPolicy
	chunkSize    uint64
	pollInterval time.Duration
}

// Dial connects to the node at cfg.RPCURL.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger node: %w", err)
	}
	client, err := NewClient(backend, cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return client, nil
}

func NewClient(backend Backend, cfg Config) (*Client, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	address := common.HexToAddress(cfg.ContractAddress)

	c := &Client{
		backend:      backend,
		address:      address,
		contract:     bind.NewBoundContract(address, contractABI, backend, backend, backend),
		retry:        cfg.Retry,
		chunkSize:    cfg.LogChunkSize,
		pollInterval: cfg.PollInterval,
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = DefaultRetryPolicy
	}
	if c.chunkSize == 0 {
		c.chunkSize = 5000
	}
	if c.pollInterval == 0 {
		c.pollInterval = time.Second
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid ledger private key: %w", err)
		}
		signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
		if err != nil {
			return nil, fmt.Errorf("create transactor: %w", err)
		}
		c.signer = signer
	}

	return c, nil
}

// Close releases the node connection.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

func (c *Client) Address() common.Address {
	return c.address
}

// Account returns the signing address, or the zero address when read-only.
func (c *Client) Account() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.From
}

func (c *Client) ReadOnly() bool {
	return c.signer == nil
}

// CurrentBlock returns the latest block number.
func (c *Client) CurrentBlock(ctx context.Context) (uint64, error) {
	return retry(ctx, c.retry, "blockNumber", c.backend.BlockNumber)
}

// QueryEvents returns the logs matching filter in [fromBlock, toBlock],
// fetched in chunks of at most LogChunkSize blocks.
func (c *Client) QueryEvents(ctx context.Context, filter domain.EventFilter, fromBlock, toBlock uint64) ([]domain.RawEvent, error) {
	if fromBlock > toBlock {
		return nil, nil
	}
	topics, err := filterTopics(filter)
	if err != nil {
		return nil, err
	}

	var events []domain.RawEvent
	for start := fromBlock; ; start += c.chunkSize {
		end := toBlock
		if toBlock-start >= c.chunkSize {
			end = start + c.chunkSize - 1
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{c.address},
			Topics:    topics,
		}
		logs, err := retry(ctx, c.retry, "filterLogs", func(ctx context.Context) ([]types.Log, error) {
			return c.backend.FilterLogs(ctx, query)
		})
		if err != nil {
			return nil, fmt.Errorf("query %s events in blocks %d-%d: %w", filter.Kind, start, end, err)
		}

		for _, l := range logs {
			if l.Removed {
				continue
			}
			event, ok, err := decodeLog(l)
			if err != nil {
				return nil, err
			}
			if ok && event.Kind == filter.Kind {
				events = append(events, event)
			}
		}

		if end == toBlock {
			break
		}
	}

	return events, nil
}

// call runs a read-only contract method at the latest block.
func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	return retry(ctx, c.retry, method, func(ctx context.Context) ([]any, error) {
		var out []any
		err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
		return out, err
	})
}

func (c *Client) Token(ctx context.Context, id uint64) (domain.Token, error) {
	out, err := c.call(ctx, domain.MethodTokens, new(big.Int).SetUint64(id))
	if err != nil {
		return domain.Token{}, err
	}
	if len(out) != 5 {
		return domain.Token{}, fmt.Errorf("tokens(%d): unexpected %d outputs", id, len(out))
	}

	tokenID, _ := out[0].(*big.Int)
	name, _ := out[1].(string)
	if (tokenID == nil || tokenID.Sign() == 0) && name == "" {
		return domain.Token{}, fmt.Errorf("token %d does not exist", id)
	}
	description, _ := out[2].(string)
	creator, _ := out[3].(common.Address)
	created, _ := out[4].(*big.Int)

	return domain.Token{
		ID:          id,
		Name:        name,
		Description: description,
		Creator:     creator,
		CreatedAt:   unixTime(created),
	}, nil
}

func (c *Client) Balance(ctx context.Context, id uint64, account common.Address) (domain.Quantity, error) {
	out, err := c.call(ctx, domain.MethodGetBalance, new(big.Int).SetUint64(id), account)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("getBalance(%d): no output", id)
	}
	return domain.QuantityFromBig(asBig(out[0]))
}

func (c *Client) AttributeNames(ctx context.Context, id uint64) ([]string, error) {
	out, err := c.call(ctx, domain.MethodGetAttributeNames, new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("getAttributeNames(%d): no output", id)
	}
	names, _ := out[0].([]string)
	return names, nil
}

func (c *Client) Attribute(ctx context.Context, id uint64, name string) (domain.Attribute, error) {
	out, err := c.call(ctx, domain.MethodGetAttribute, new(big.Int).SetUint64(id), name)
	if err != nil {
		return domain.Attribute{}, err
	}
	if len(out) != 3 {
		return domain.Attribute{}, fmt.Errorf("getAttribute(%d, %q): unexpected %d outputs", id, name, len(out))
	}
	attrName, _ := out[0].(string)
	value, _ := out[1].(string)
	ts, _ := out[2].(*big.Int)
	return domain.Attribute{Name: attrName, Value: value, Timestamp: unixTime(ts)}, nil
}

func (c *Client) PendingTransferIDs(ctx context.Context, account common.Address) ([]uint64, error) {
	out, err := c.call(ctx, domain.MethodGetPendingTransfers, account)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("getPendingTransfers(%s): no output", account.Hex())
	}
	raw, _ := out[0].([]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		id, err := toUint64(v)
		if err != nil {
			return nil, fmt.Errorf("pending transfer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) TransferRecord(ctx context.Context, id uint64) (domain.TransferRecord, error) {
	out, err := c.call(ctx, domain.MethodTransfers, new(big.Int).SetUint64(id))
	if err != nil {
		return domain.TransferRecord{}, err
	}
	if len(out) != 6 {
		return domain.TransferRecord{}, fmt.Errorf("transfers(%d): unexpected %d outputs", id, len(out))
	}

	recordID, err := toUint64(asBig(out[0]))
	if err != nil {
		return domain.TransferRecord{}, err
	}
	itemID, err := toUint64(asBig(out[1]))
	if err != nil {
		return domain.TransferRecord{}, err
	}
	qty, err := domain.QuantityFromBig(asBig(out[4]))
	if err != nil {
		return domain.TransferRecord{}, err
	}
	from, _ := out[2].(common.Address)
	to, _ := out[3].(common.Address)
	status, _ := out[5].(uint8)

	return domain.TransferRecord{
		ID:       recordID,
		ItemID:   itemID,
		From:     from,
		To:       to,
		Quantity: qty,
		Status:   status,
	}, nil
}

func asBig(v any) *big.Int {
	b, _ := v.(*big.Int)
	return b
}

// Submit signs and sends a state-changing call. Writes are never retried:
// a resend could apply the call twice.
func (c *Client) Submit(ctx context.Context, method string, args ...any) (*domain.PendingTransaction, error) {
	if c.signer == nil {
		return nil, domain.ErrReadOnlyLedger
	}

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, args...)
	if err != nil {
		return nil, &domain.WriteError{Method: method, Reason: revertReason(err), Err: err}
	}

	zap.L().Info("Ledger transaction submitted",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
	)

	return &domain.PendingTransaction{
		Method: method,
		Hash:   tx.Hash(),
		From:   opts.From,
		To:     c.address,
		Data:   tx.Data(),
	}, nil
}

func notConfirmed(ptx *domain.PendingTransaction, err error) *domain.WriteError {
	return &domain.WriteError{Method: ptx.Method, TxHash: ptx.Hash, Reason: "not confirmed", Err: err}
}

// Await polls for the receipt of ptx until it is mined or ctx ends. A
// reverted transaction is replayed at its block to recover the reason.
func (c *Client) Await(ctx context.Context, ptx *domain.PendingTransaction) (*domain.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var receipt *types.Receipt
	for {
		r, err := c.backend.TransactionReceipt(ctx, ptx.Hash)
		if err == nil {
			receipt = r
			break
		}
		if ctx.Err() != nil {
			return nil, notConfirmed(ptx, ctx.Err())
		}
		if !errors.Is(err, ethereum.NotFound) && !isTransient(err) {
			return nil, &domain.WriteError{Method: ptx.Method, TxHash: ptx.Hash, Err: err}
		}

		select {
		case <-ctx.Done():
			return nil, notConfirmed(ptx, ctx.Err())
		case <-ticker.C:
		}
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &domain.WriteError{
			Method: ptx.Method,
			TxHash: ptx.Hash,
			Reason: c.replay(ctx, ptx, receipt.BlockNumber),
		}
	}

	result := &domain.Receipt{
		TxHash:  ptx.Hash,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	for _, l := range receipt.Logs {
		if l == nil || l.Address != c.address {
			continue
		}
		event, ok, err := decodeLog(*l)
		if err != nil {
			zap.L().Warn("Skipping undecodable receipt log", zap.String("tx", ptx.Hash.Hex()), zap.Error(err))
			continue
		}
		if ok {
			result.Events = append(result.Events, event)
		}
	}

	zap.L().Info("Ledger transaction confirmed",
		zap.String("method", ptx.Method),
		zap.String("tx", ptx.Hash.Hex()),
		zap.Uint64("block", result.BlockNumber),
	)
	return result, nil
}

func (c *Client) replay(ctx context.Context, ptx *domain.PendingTransaction, block *big.Int) string {
	_, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From: ptx.From,
		To:   &ptx.To,
		Data: ptx.Data,
	}, block)
	if err == nil {
		return "transaction reverted"
	}
	return revertReason(err)
}

// revertReason extracts the Error(string) reason from a revert, falling back
// to the node's message.
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(hexData); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(msg, "execution reverted: "); i >= 0 {
		return msg[i+len("execution reverted: "):]
	}
	return msg
}
