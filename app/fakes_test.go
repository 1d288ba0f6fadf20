package app

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"olivetrace/app/dashboard"
	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addrAA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	addrBB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	addrCC = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type fakeRepository struct {
	participants map[string]domain.Participant
	err          error
}

func newFakeRepository(participants ...domain.Participant) *fakeRepository {
	r := &fakeRepository{participants: make(map[string]domain.Participant)}
	for _, p := range participants {
		r.participants[p.Address] = p
	}
	return r
}

func (r *fakeRepository) Close() error { return nil }

func (r *fakeRepository) GetParticipant(_ context.Context, address string) (domain.Participant, error) {
	if r.err != nil {
		return domain.Participant{}, r.err
	}
	p, ok := r.participants[address]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (r *fakeRepository) GetParticipants(_ context.Context, role domain.Role, limit, offset int) ([]domain.Participant, error) {
	var out []domain.Participant
	for _, p := range r.participants {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return []domain.Participant{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepository) CountParticipants(_ context.Context, role domain.Role) (int, error) {
	n := 0
	for _, p := range r.participants {
		if role == "" || p.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) UpsertParticipant(_ context.Context, p domain.Participant) (domain.Participant, error) {
	r.participants[p.Address] = p
	return p, nil
}

type submission struct {
	method string
	args   []any
}

type fakeWriter struct {
	account   common.Address
	readOnly  bool
	submitErr error
	awaitErr  error
	receipt   *domain.Receipt
	submitted []submission
}

func (w *fakeWriter) Submit(_ context.Context, method string, args ...any) (*domain.PendingTransaction, error) {
	if w.submitErr != nil {
		return nil, w.submitErr
	}
	w.submitted = append(w.submitted, submission{method: method, args: args})
	return &domain.PendingTransaction{Method: method, Hash: common.HexToHash("0xfeed"), From: w.account}, nil
}

func (w *fakeWriter) Await(_ context.Context, ptx *domain.PendingTransaction) (*domain.Receipt, error) {
	if w.awaitErr != nil {
		return nil, w.awaitErr
	}
	if w.receipt != nil {
		return w.receipt, nil
	}
	return &domain.Receipt{TxHash: ptx.Hash, BlockNumber: 12}, nil
}

func (w *fakeWriter) Account() common.Address { return w.account }

func (w *fakeWriter) ReadOnly() bool { return w.readOnly }

type fakeLoader struct {
	mu          sync.Mutex
	view        *dashboard.View
	report      *dashboard.TraceReport
	err         error
	requests    []dashboard.Request
	invalidated []common.Address
}

func (l *fakeLoader) Load(_ context.Context, req dashboard.Request) (*dashboard.View, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	if l.err != nil {
		return nil, l.err
	}
	if l.view != nil {
		return l.view, nil
	}
	return &dashboard.View{Identity: req.Identity, Role: req.Role}, nil
}

func (l *fakeLoader) Trace(_ context.Context, itemID uint64) (*dashboard.TraceReport, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.report, nil
}

func (l *fakeLoader) Invalidate(_ context.Context, identities ...common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidated = append(l.invalidated, identities...)
}

type fakeSessions struct {
	loader  *fakeLoader
	tracked []dashboard.Request
}

func (s *fakeSessions) View(ctx context.Context, req dashboard.Request) (*dashboard.View, error) {
	s.tracked = append(s.tracked, req)
	return s.loader.Load(ctx, req)
}

var errNoState = errors.New("execution reverted: no such entry")

// chainLedger is an empty ledger whose head can be moved. It counts event
// queries so tests can tell a rebuilt view from a served one.
type chainLedger struct {
	mu      sync.Mutex
	head    uint64
	queries int
}

func (l *chainLedger) setHead(head uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.head = head
}

func (l *chainLedger) queryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queries
}

func (l *chainLedger) CurrentBlock(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head, nil
}

func (l *chainLedger) QueryEvents(context.Context, domain.EventFilter, uint64, uint64) ([]domain.RawEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries++
	return nil, nil
}

func (l *chainLedger) Token(context.Context, uint64) (domain.Token, error) {
	return domain.Token{}, errNoState
}

func (l *chainLedger) Balance(context.Context, uint64, common.Address) (domain.Quantity, error) {
	return 0, nil
}

func (l *chainLedger) AttributeNames(context.Context, uint64) ([]string, error) {
	return nil, nil
}

func (l *chainLedger) Attribute(context.Context, uint64, string) (domain.Attribute, error) {
	return domain.Attribute{}, errNoState
}

func (l *chainLedger) PendingTransferIDs(context.Context, common.Address) ([]uint64, error) {
	return nil, nil
}

func (l *chainLedger) TransferRecord(context.Context, uint64) (domain.TransferRecord, error) {
	return domain.TransferRecord{}, errNoState
}

type fakeStore struct {
	objects map[string][]byte
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Upload(key string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Download(key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.objects[key], nil
}

var errBoom = errors.New("boom")

func bigArg(v any) *big.Int {
	b, _ := v.(*big.Int)
	return b
}
