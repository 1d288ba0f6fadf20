package dashboard

import (
	"context"
	"fmt"
	"time"

	"olivetrace/domain"
)

// TraceReport is the provenance of one item: its state, where it was minted
// and every movement since.
type TraceReport struct {
	Token       domain.Token      `json:"token"`
	Origin      *domain.RawEvent  `json:"origin,omitempty"`
	Transfers   []domain.Transfer `json:"transfers"`
	BlockHeight uint64            `json:"blockHeight"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// Trace builds the report of a single item. Unlike dashboard loads, failing
// to read the item itself is an error.
func (l *Loader) Trace(ctx context.Context, itemID uint64) (*TraceReport, error) {
	head, err := l.ledger.CurrentBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading block height: %w", err)
	}
	from, to := l.reconciler.window.Range(head)

	token, err := l.builder.FetchToken(ctx, itemID)
	if err != nil {
		return nil, err
	}

	created, err := l.ledger.QueryEvents(ctx, domain.EventFilter{Kind: domain.EventItemCreated, ItemIDs: []uint64{itemID}}, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying %s events: %w", domain.EventItemCreated, err)
	}
	moved, err := l.ledger.QueryEvents(ctx, domain.EventFilter{Kind: domain.EventItemTransferred, ItemIDs: []uint64{itemID}}, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying %s events: %w", domain.EventItemTransferred, err)
	}

	report := &TraceReport{
		Token:       token,
		BlockHeight: head,
		GeneratedAt: time.Now().UTC(),
	}

	for _, e := range dedupEvents(created) {
		if e.ItemID == itemID {
			origin := e
			report.Origin = &origin
			break
		}
	}

	var history []domain.RawEvent
	for _, e := range dedupEvents(moved) {
		if e.ItemID == itemID {
			history = append(history, e)
		}
	}

	report.Transfers, err = l.resolver.Resolve(ctx, history)
	if err != nil {
		return nil, err
	}
	for i := range report.Transfers {
		report.Transfers[i].ItemName = token.Name
	}

	return report, nil
}
