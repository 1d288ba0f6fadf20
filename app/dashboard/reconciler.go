package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// BlockWindow bounds the history replayed on every load. A zero Lookback
// replays everything since StartBlock.
type BlockWindow struct {
	StartBlock uint64
	Lookback   uint64
}

// Range returns the inclusive block range to replay for a chain head.
func (w BlockWindow) Range(head uint64) (from, to uint64) {
	from = w.StartBlock
	if w.Lookback > 0 && head >= w.Lookback && head-w.Lookback+1 > from {
		from = head - w.Lookback + 1
	}
	if from > head {
		from = head
	}
	return from, head
}

// Reconciliation is the set of events and item ids a viewer should see.
type Reconciliation struct {
	Identity  common.Address    `json:"identity"`
	FromBlock uint64            `json:"fromBlock"`
	ToBlock   uint64            `json:"toBlock"`
	Created   []domain.RawEvent `json:"created"`
	Transfers []domain.RawEvent `json:"transfers"`
	ItemIDs   []uint64          `json:"itemIds"`
}

// Reconciler replays ItemCreated and ItemTransferred logs and keeps the ones
// relevant to a viewer.
type Reconciler struct {
	ledger Ledger
	window BlockWindow
}

func NewReconciler(ledger Ledger, window BlockWindow) *Reconciler {
	return &Reconciler{
		ledger: ledger,
		window: window,
	}
}

// Reconcile replays history up to head. A zero identity yields an empty
// result. Any failed event query fails the whole reconciliation.
func (r *Reconciler) Reconcile(ctx context.Context, identity common.Address, policy ViewPolicy, head uint64) (*Reconciliation, error) {
	from, to := r.window.Range(head)
	result := &Reconciliation{
		Identity:  identity,
		FromBlock: from,
		ToBlock:   to,
		Created:   []domain.RawEvent{},
		Transfers: []domain.RawEvent{},
		ItemIDs:   []uint64{},
	}

	if identity == (common.Address{}) {
		return result, nil
	}

	filters := r.filters(identity, policy)

	var (
		mu  sync.Mutex
		raw []domain.RawEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, filter := range filters {
		g.Go(func() error {
			events, err := r.ledger.QueryEvents(gctx, filter, from, to)
			if err != nil {
				return fmt.Errorf("querying %s events: %w", filter.Kind, err)
			}
			mu.Lock()
			raw = append(raw, events...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events := dedupEvents(raw)

	seen := make(map[uint64]struct{}, len(events))
	for _, e := range events {
		switch e.Kind {
		case domain.EventItemCreated:
			if !policy.relevantCreated(e, identity) {
				continue
			}
			result.Created = append(result.Created, e)
		case domain.EventItemTransferred:
			if !policy.relevantTransfer(e, identity) {
				continue
			}
			result.Transfers = append(result.Transfers, e)
		default:
			continue
		}

		if _, ok := seen[e.ItemID]; !ok {
			seen[e.ItemID] = struct{}{}
			result.ItemIDs = append(result.ItemIDs, e.ItemID)
		}
	}

	return result, nil
}

func (r *Reconciler) filters(identity common.Address, policy ViewPolicy) []domain.EventFilter {
	if policy.AllItems {
		return []domain.EventFilter{
			{Kind: domain.EventItemCreated},
			{Kind: domain.EventItemTransferred},
		}
	}

	var filters []domain.EventFilter
	if policy.IncludeCreated {
		filters = append(filters, domain.EventFilter{Kind: domain.EventItemCreated, Creator: &identity})
	}
	if policy.Directions.Has(Outgoing) {
		filters = append(filters, domain.EventFilter{Kind: domain.EventItemTransferred, From: &identity})
	}
	if policy.Directions.Has(Incoming) {
		filters = append(filters, domain.EventFilter{Kind: domain.EventItemTransferred, To: &identity})
	}
	return filters
}

// dedupEvents drops repeated logs and orders the rest by chain position.
// Overlapping queries (a transfer to oneself matches both the From and the
// To filter) return the same log twice.
func dedupEvents(events []domain.RawEvent) []domain.RawEvent {
	seen := make(map[string]struct{}, len(events))
	out := make([]domain.RawEvent, 0, len(events))
	for _, e := range events {
		key := e.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out
}
