package app

import (
	"context"

	"olivetrace/app/dashboard"
	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	Close() error
	GetParticipant(ctx context.Context, address string) (domain.Participant, error)
	GetParticipants(ctx context.Context, role domain.Role, limit, offset int) ([]domain.Participant, error)
	CountParticipants(ctx context.Context, role domain.Role) (int, error)
	UpsertParticipant(ctx context.Context, p domain.Participant) (domain.Participant, error)
}

// LedgerWriter submits state-changing contract calls.
type LedgerWriter interface {
	Submit(ctx context.Context, method string, args ...any) (*domain.PendingTransaction, error)
	Await(ctx context.Context, ptx *domain.PendingTransaction) (*domain.Receipt, error)
	Account() common.Address
	ReadOnly() bool
}

// DashboardLoader derives dashboard views from the ledger.
type DashboardLoader interface {
	Load(ctx context.Context, req dashboard.Request) (*dashboard.View, error)
	Trace(ctx context.Context, itemID uint64) (*dashboard.TraceReport, error)
	Invalidate(ctx context.Context, identities ...common.Address)
}

// SessionTracker remembers which views are being watched so live updates
// can refresh them, and serves the last published view while it is current.
type SessionTracker interface {
	View(ctx context.Context, req dashboard.Request) (*dashboard.View, error)
}

// ReportStore keeps exported trace reports.
type ReportStore interface {
	Upload(key string, data []byte) error
	Download(key string) ([]byte, error)
}
