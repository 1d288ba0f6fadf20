package consumers

import (
	"context"
	"fmt"

	"olivetrace/pkg/events"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// SnapshotInvalidator drops cached dashboard views.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, identities ...common.Address)
}

// SessionRefresher reloads the live dashboards of one participant.
type SessionRefresher interface {
	Refresh(ctx context.Context, address common.Address) (int, error)
}

// LedgerEventHandler keeps this instance's cached and live dashboard views in
// step with the contract events published by the watcher.
type LedgerEventHandler struct {
	snapshots SnapshotInvalidator
	sessions  SessionRefresher
}

func NewLedgerEventHandler(snapshots SnapshotInvalidator, sessions SessionRefresher) *LedgerEventHandler {
	return &LedgerEventHandler{
		snapshots: snapshots,
		sessions:  sessions,
	}
}

func (h *LedgerEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	zap.L().Debug("Ledger event received",
		zap.String("event", event.Event),
		zap.String("version", event.Version),
		zap.String("traceId", event.TraceID),
	)

	var (
		addresses []common.Address
		err       error
	)
	switch event.Event {
	case events.LedgerItemCreatedEvent:
		addresses, err = createdAddresses(event)
	case events.LedgerItemTransferredEvent:
		addresses, err = transferredAddresses(event)
	default:
		zap.L().Warn("Unknown ledger event type", zap.String("event", event.Event))
		return nil
	}
	if err != nil {
		return err
	}

	if h.snapshots != nil {
		h.snapshots.Invalidate(ctx, addresses...)
	}
	if h.sessions == nil {
		return nil
	}

	for _, address := range addresses {
		n, err := h.sessions.Refresh(ctx, address)
		if err != nil {
			// The next request reloads the view; a failed push is not worth a redelivery.
			zap.L().Warn("Live dashboard refresh failed",
				zap.String("address", address.Hex()),
				zap.String("traceId", event.TraceID),
				zap.Error(err),
			)
			continue
		}
		if n > 0 {
			zap.L().Info("Live dashboards refreshed",
				zap.String("address", address.Hex()),
				zap.Int("sessions", n),
				zap.String("event", event.Event),
			)
		}
	}
	return nil
}

func createdAddresses(event *events.Event) ([]common.Address, error) {
	var payload events.LedgerItemCreatedPayload
	if err := events.DecodePayload(event, &payload); err != nil {
		return nil, err
	}
	creator, err := parseAddress("creator", payload.Creator)
	if err != nil {
		return nil, err
	}
	return []common.Address{creator}, nil
}

func transferredAddresses(event *events.Event) ([]common.Address, error) {
	var payload events.LedgerItemTransferredPayload
	if err := events.DecodePayload(event, &payload); err != nil {
		return nil, err
	}
	from, err := parseAddress("from", payload.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", payload.To)
	if err != nil {
		return nil, err
	}
	if from == to {
		return []common.Address{from}, nil
	}
	return []common.Address{from, to}, nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("malformed payload - %s missing or invalid", field)
	}
	return common.HexToAddress(value), nil
}
