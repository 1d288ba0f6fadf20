package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"olivetrace/domain"
	"olivetrace/pkg/events"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// EventSource is the part of the ledger the watcher reads.
type EventSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	QueryEvents(ctx context.Context, filter domain.EventFilter, fromBlock, toBlock uint64) ([]domain.RawEvent, error)
}

// CursorStore persists the last block a watcher has published.
type CursorStore interface {
	GetCursor(ctx context.Context, name string) (block uint64, found bool, err error)
	SaveCursor(ctx context.Context, name string, block uint64) error
}

type WatcherConfig struct {
	Name       string
	Schedule   string
	StartBlock uint64
	// MaxRange caps how many blocks one poll covers so a long outage is
	// caught up over several polls.
	MaxRange uint64
	// Confirmations is how many blocks behind the head the watcher stays.
	Confirmations uint64
	Service       string
}

// Watcher polls the ledger on a cron schedule and republishes new contract
// events to the broker. Delivery is at least once: the cursor only moves
// after every event of a range is published.
type Watcher struct {
	source    EventSource
	cursors   CursorStore
	publisher events.Publisher
	cfg       WatcherConfig
	cron      *cron.Cron

	mu sync.Mutex
}

func NewWatcher(source EventSource, cursors CursorStore, publisher events.Publisher, cfg WatcherConfig) *Watcher {
	if cfg.Name == "" {
		cfg.Name = "ledger-events"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15s"
	}
	if cfg.MaxRange == 0 {
		cfg.MaxRange = 50000
	}
	return &Watcher{
		source:    source,
		cursors:   cursors,
		publisher: publisher,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// Start schedules polling. It returns an error for an invalid schedule.
func (w *Watcher) Start() error {
	_, err := w.cron.AddFunc(w.cfg.Schedule, func() {
		if _, err := w.Poll(context.Background()); err != nil {
			zap.L().Error("Ledger poll failed", zap.String("watcher", w.cfg.Name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid watcher schedule %q: %w", w.cfg.Schedule, err)
	}
	w.cron.Start()

	zap.L().Info("Ledger watcher started",
		zap.String("watcher", w.cfg.Name),
		zap.String("schedule", w.cfg.Schedule),
	)
	return nil
}

// Stop stops scheduling and waits for a running poll to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	zap.L().Info("Ledger watcher stopped", zap.String("watcher", w.cfg.Name))
}

// Poll publishes the events of the next unprocessed block range and returns
// how many were published. Overlapping polls are skipped.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	if !w.mu.TryLock() {
		zap.L().Debug("Ledger poll already running", zap.String("watcher", w.cfg.Name))
		return 0, nil
	}
	defer w.mu.Unlock()

	from := w.cfg.StartBlock
	cursor, found, err := w.cursors.GetCursor(ctx, w.cfg.Name)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	if found && cursor+1 > from {
		from = cursor + 1
	}

	head, err := w.source.CurrentBlock(ctx)
	if err != nil {
		return 0, err
	}
	if head < w.cfg.Confirmations {
		return 0, nil
	}
	head -= w.cfg.Confirmations
	if from > head {
		return 0, nil
	}
	to := head
	if to-from >= w.cfg.MaxRange {
		to = from + w.cfg.MaxRange - 1
	}

	var batch []domain.RawEvent
	for _, kind := range []domain.EventKind{domain.EventItemCreated, domain.EventItemTransferred} {
		logs, err := w.source.QueryEvents(ctx, domain.EventFilter{Kind: kind}, from, to)
		if err != nil {
			return 0, err
		}
		batch = append(batch, logs...)
	}
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].BlockNumber != batch[j].BlockNumber {
			return batch[i].BlockNumber < batch[j].BlockNumber
		}
		return batch[i].LogIndex < batch[j].LogIndex
	})

	headers := events.Headers{
		TraceID:       events.GenerateTraceID(),
		CorrelationID: events.GenerateCorrelationID(),
		Service:       w.cfg.Service,
	}
	for _, e := range batch {
		if err := w.publisher.Publish(ctx, events.LedgerExchange, LedgerEvent(e, headers), headers); err != nil {
			return 0, fmt.Errorf("publish %s: %w", e.Key(), err)
		}
	}

	if err := w.cursors.SaveCursor(ctx, w.cfg.Name, to); err != nil {
		return len(batch), fmt.Errorf("save cursor: %w", err)
	}

	if len(batch) > 0 {
		zap.L().Info("Ledger events published",
			zap.String("watcher", w.cfg.Name),
			zap.Uint64("fromBlock", from),
			zap.Uint64("toBlock", to),
			zap.Int("count", len(batch)),
		)
	}
	return len(batch), nil
}

// LedgerEvent wraps a contract event in the broker envelope.
func LedgerEvent(e domain.RawEvent, headers events.Headers) *events.Event {
	if e.Kind == domain.EventItemCreated {
		return events.NewEvent(events.LedgerItemCreatedEvent, events.EventVersionV1, events.LedgerItemCreatedPayload{
			ItemID:      e.ItemID,
			Name:        e.Name,
			Creator:     e.Creator.Hex(),
			Quantity:    int64(e.Quantity),
			QuantityKg:  e.Quantity.Kilograms(),
			TxHash:      e.TxHash.Hex(),
			LogIndex:    e.LogIndex,
			BlockNumber: e.BlockNumber,
			Timestamp:   e.Timestamp,
		}, headers)
	}
	return events.NewEvent(events.LedgerItemTransferredEvent, events.EventVersionV1, events.LedgerItemTransferredPayload{
		ItemID:      e.ItemID,
		From:        e.From.Hex(),
		To:          e.To.Hex(),
		Quantity:    int64(e.Quantity),
		QuantityKg:  e.Quantity.Kilograms(),
		TxHash:      e.TxHash.Hex(),
		LogIndex:    e.LogIndex,
		BlockNumber: e.BlockNumber,
		Timestamp:   e.Timestamp,
	}, headers)
}
