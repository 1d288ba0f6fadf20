package dashboard

import (
	"context"
	"fmt"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// TransferResolver attaches a transfer id and lifecycle status to transfer
// events by matching them against the receivers' pending transfers.
type TransferResolver struct {
	ledger Ledger
}

func NewTransferResolver(ledger Ledger) *TransferResolver {
	return &TransferResolver{ledger: ledger}
}

type pendingRecord struct {
	record domain.TransferRecord
	used   bool
}

// Resolve returns one transfer per ItemTransferred event, in event order.
// An event with no matching pending record is COMPLETED with id 0. Failing
// to list a receiver's pending transfers fails the resolution; a single
// unreadable pending record is logged and ignored.
//
// Matching uses the (itemId, from, to) triple. When several pending records
// share a triple, records with the event's exact quantity are preferred, each
// record is assigned at most once, and the newest events are paired with the
// newest records first.
func (r *TransferResolver) Resolve(ctx context.Context, events []domain.RawEvent) ([]domain.Transfer, error) {
	transfers := make([]domain.Transfer, 0, len(events))
	for _, e := range events {
		if e.Kind != domain.EventItemTransferred {
			continue
		}
		transfers = append(transfers, e.AsTransfer())
	}
	if len(transfers) == 0 {
		return transfers, nil
	}

	pending := make(map[common.Address][]*pendingRecord)
	for _, t := range transfers {
		if _, ok := pending[t.To]; ok {
			continue
		}
		records, err := r.pendingFor(ctx, t.To)
		if err != nil {
			return nil, err
		}
		pending[t.To] = records
	}

	matched := make([]bool, len(transfers))
	assign := func(exactQuantity bool) {
		for i := len(transfers) - 1; i >= 0; i-- {
			if matched[i] {
				continue
			}
			records := pending[transfers[i].To]
			for j := len(records) - 1; j >= 0; j-- {
				candidate := records[j]
				if candidate.used || !candidate.record.Matches(transfers[i]) {
					continue
				}
				if exactQuantity && candidate.record.Quantity != transfers[i].Quantity {
					continue
				}
				candidate.used = true
				matched[i] = true
				transfers[i].TransferID = candidate.record.ID
				transfers[i].Status = resolveStatus(candidate.record)
				break
			}
		}
	}
	assign(true)
	assign(false)

	return transfers, nil
}

func (r *TransferResolver) pendingFor(ctx context.Context, receiver common.Address) ([]*pendingRecord, error) {
	ids, err := r.ledger.PendingTransferIDs(ctx, receiver)
	if err != nil {
		return nil, fmt.Errorf("listing pending transfers of %s: %w", receiver.Hex(), err)
	}

	records := make([]*pendingRecord, 0, len(ids))
	for _, id := range ids {
		record, err := r.ledger.TransferRecord(ctx, id)
		if err != nil {
			zap.L().Warn("Skipping unreadable pending transfer",
				zap.Uint64("transferId", id),
				zap.String("receiver", receiver.Hex()),
				zap.Error(err),
			)
			continue
		}
		if record.ID == 0 {
			record.ID = id
		}
		records = append(records, &pendingRecord{record: record})
	}
	return records, nil
}

func resolveStatus(record domain.TransferRecord) domain.TransferStatus {
	status, ok := domain.TransferStatusFromLedger(record.Status)
	if !ok {
		zap.L().Warn("Unknown transfer status from ledger, treating as completed",
			zap.Uint64("transferId", record.ID),
			zap.Uint8("status", record.Status),
		)
	}
	return status
}
