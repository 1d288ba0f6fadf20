package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type contextKey string

const participantKey contextKey = "ParticipantAddress"

// WithParticipant stores the calling participant's ledger address.
func WithParticipant(ctx context.Context, address common.Address) context.Context {
	return context.WithValue(ctx, participantKey, address)
}

func ParticipantFromContext(ctx context.Context) (common.Address, bool) {
	address, ok := ctx.Value(participantKey).(common.Address)
	return address, ok && address != (common.Address{})
}
