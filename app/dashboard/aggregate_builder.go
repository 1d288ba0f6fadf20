package dashboard

import (
	"context"
	"fmt"
	"sort"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 8

// Inventory is the grouped view of a viewer's items.
type Inventory struct {
	Aggregates []domain.Aggregate      `json:"aggregates"`
	Tokens     map[uint64]domain.Token `json:"-"`
	Skipped    []uint64                `json:"skipped,omitempty"`
}

type itemResult struct {
	token   domain.Token
	balance domain.Quantity
	ok      bool
}

// AggregateBuilder fetches each item's state, attributes and balance and
// groups items by product name.
type AggregateBuilder struct {
	ledger      Ledger
	concurrency int
}

func NewAggregateBuilder(ledger Ledger, concurrency int) *AggregateBuilder {
	if concurrency < 1 {
		concurrency = defaultFetchConcurrency
	}
	return &AggregateBuilder{
		ledger:      ledger,
		concurrency: concurrency,
	}
}

// Build fetches items concurrently. An item whose reads fail is logged and
// left out; only cancellation of ctx fails the build. The grouping depends on
// the order of itemIDs, never on the order fetches complete in.
func (b *AggregateBuilder) Build(ctx context.Context, identity common.Address, itemIDs []uint64, includeZeroBalance bool) (*Inventory, error) {
	results := make([]itemResult, len(itemIDs))

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for i, id := range itemIDs {
		g.Go(func() error {
			token, balance, err := b.fetchItem(ctx, id, identity)
			if err != nil {
				zap.L().Warn("Skipping item, ledger reads failed",
					zap.Uint64("itemId", id),
					zap.Error(err),
				)
				return nil
			}
			results[i] = itemResult{token: token, balance: balance, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("building aggregates: %w", err)
	}

	inventory := &Inventory{
		Aggregates: []domain.Aggregate{},
		Tokens:     make(map[uint64]domain.Token, len(itemIDs)),
	}

	byName := make(map[string]*domain.Aggregate)
	var order []*domain.Aggregate
	for i, res := range results {
		if !res.ok {
			inventory.Skipped = append(inventory.Skipped, itemIDs[i])
			continue
		}
		inventory.Tokens[res.token.ID] = res.token

		if res.balance == 0 && !includeZeroBalance {
			continue
		}

		agg, ok := byName[res.token.Name]
		if !ok {
			agg = domain.NewAggregate(res.token.Name)
			byName[res.token.Name] = agg
			order = append(order, agg)
		}
		agg.Add(domain.Batch{
			ID:          res.token.ID,
			Balance:     res.balance,
			CreatedAt:   res.token.CreatedAt,
			Description: res.token.Description,
			Creator:     res.token.Creator,
			Attributes:  res.token.Attributes,
		})
	}

	// Most recently created first; equal timestamps keep discovery order.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].FirstCreatedAt().After(order[j].FirstCreatedAt())
	})
	for _, agg := range order {
		inventory.Aggregates = append(inventory.Aggregates, *agg)
	}

	return inventory, nil
}

// FetchToken reads an item's state and attributes.
func (b *AggregateBuilder) FetchToken(ctx context.Context, id uint64) (domain.Token, error) {
	token, err := b.ledger.Token(ctx, id)
	if err != nil {
		return domain.Token{}, fmt.Errorf("reading token %d: %w", id, err)
	}
	token.ID = id

	names, err := b.ledger.AttributeNames(ctx, id)
	if err != nil {
		return domain.Token{}, fmt.Errorf("reading attribute names of %d: %w", id, err)
	}

	token.Attributes = make([]domain.Attribute, 0, len(names))
	for _, name := range names {
		attr, err := b.ledger.Attribute(ctx, id, name)
		if err != nil {
			return domain.Token{}, fmt.Errorf("reading attribute %q of %d: %w", name, id, err)
		}
		token.SetAttribute(attr)
	}

	return token, nil
}

func (b *AggregateBuilder) fetchItem(ctx context.Context, id uint64, identity common.Address) (domain.Token, domain.Quantity, error) {
	token, err := b.FetchToken(ctx, id)
	if err != nil {
		return domain.Token{}, 0, err
	}

	balance, err := b.ledger.Balance(ctx, id, identity)
	if err != nil {
		return domain.Token{}, 0, fmt.Errorf("reading balance of %d: %w", id, err)
	}

	return token, balance, nil
}
