package dashboard

import (
	"context"
	"fmt"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Request describes one dashboard load. IncludeZeroBalance overrides the
// role policy when set.
type Request struct {
	Identity           common.Address
	Role               domain.Role
	IncludeZeroBalance *bool
}

func (r Request) policy() ViewPolicy {
	p := PolicyFor(r.Role)
	if r.IncludeZeroBalance != nil {
		p.IncludeZeroBalance = *r.IncludeZeroBalance
	}
	return p
}

// View is the derived state a dashboard renders. It is rebuilt from the
// ledger on every load.
type View struct {
	Identity     common.Address     `json:"identity"`
	Role         domain.Role        `json:"role"`
	BlockHeight  uint64             `json:"blockHeight"`
	FromBlock    uint64             `json:"fromBlock"`
	Aggregates   []domain.Aggregate `json:"aggregates"`
	Transfers    []domain.Transfer  `json:"transfers"`
	SkippedItems []uint64           `json:"skippedItems,omitempty"`
	LoadedAt     time.Time          `json:"loadedAt"`
}

// Loader runs Reconciler, AggregateBuilder and TransferResolver in order.
type Loader struct {
	ledger     Ledger
	reconciler *Reconciler
	builder    *AggregateBuilder
	resolver   *TransferResolver
	cache      SnapshotCache
}

func NewLoader(ledger Ledger, window BlockWindow, concurrency int, cache SnapshotCache) *Loader {
	return &Loader{
		ledger:     ledger,
		reconciler: NewReconciler(ledger, window),
		builder:    NewAggregateBuilder(ledger, concurrency),
		resolver:   NewTransferResolver(ledger),
		cache:      cache,
	}
}

// Head returns the current chain head.
func (l *Loader) Head(ctx context.Context) (uint64, error) {
	head, err := l.ledger.CurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading block height: %w", err)
	}
	return head, nil
}

// Load derives the view for req at the current chain head.
func (l *Loader) Load(ctx context.Context, req Request) (*View, error) {
	head, err := l.Head(ctx)
	if err != nil {
		return nil, err
	}
	return l.loadAt(ctx, req, head)
}

func (l *Loader) loadAt(ctx context.Context, req Request, head uint64) (*View, error) {
	policy := req.policy()
	key := SnapshotKey{
		Identity:           req.Identity,
		Role:               req.Role,
		IncludeZeroBalance: policy.IncludeZeroBalance,
		BlockHeight:        head,
	}

	if l.cache != nil {
		view, ok, err := l.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("Snapshot cache read failed", zap.String("key", key.String()), zap.Error(err))
		} else if ok {
			return view, nil
		}
	}

	reconciliation, err := l.reconciler.Reconcile(ctx, req.Identity, policy, head)
	if err != nil {
		return nil, err
	}

	inventory, err := l.builder.Build(ctx, req.Identity, reconciliation.ItemIDs, policy.IncludeZeroBalance)
	if err != nil {
		return nil, err
	}

	transfers, err := l.resolver.Resolve(ctx, reconciliation.Transfers)
	if err != nil {
		return nil, err
	}
	for i := range transfers {
		if token, ok := inventory.Tokens[transfers[i].ItemID]; ok {
			transfers[i].ItemName = token.Name
		}
	}

	view := &View{
		Identity:     req.Identity,
		Role:         req.Role,
		BlockHeight:  head,
		FromBlock:    reconciliation.FromBlock,
		Aggregates:   inventory.Aggregates,
		Transfers:    transfers,
		SkippedItems: inventory.Skipped,
		LoadedAt:     time.Now().UTC(),
	}

	// A view missing items is served once and then rebuilt.
	if l.cache != nil && len(view.SkippedItems) == 0 {
		if err := l.cache.Set(ctx, key, view); err != nil {
			zap.L().Warn("Snapshot cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}

	return view, nil
}

// Invalidate drops cached snapshots of the given participants.
func (l *Loader) Invalidate(ctx context.Context, identities ...common.Address) {
	if l.cache == nil {
		return
	}
	for _, identity := range identities {
		if err := l.cache.Invalidate(ctx, identity); err != nil {
			zap.L().Warn("Snapshot cache invalidation failed",
				zap.String("identity", identity.Hex()),
				zap.Error(err),
			)
		}
	}
}
