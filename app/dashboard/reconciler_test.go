package dashboard

import (
	"context"
	"testing"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockWindowRange(t *testing.T) {
	tests := []struct {
		name     string
		window   BlockWindow
		head     uint64
		wantFrom uint64
	}{
		{"full history", BlockWindow{StartBlock: 10}, 500, 10},
		{"lookback inside history", BlockWindow{StartBlock: 10, Lookback: 100}, 500, 401},
		{"lookback longer than history", BlockWindow{StartBlock: 10, Lookback: 1000}, 500, 10},
		{"start after head", BlockWindow{StartBlock: 900}, 500, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.window.Range(tt.head)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.head, to)
		})
	}
}

func TestReconcile_ZeroIdentityIsEmpty(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)

	r := NewReconciler(ledger, BlockWindow{})
	got, err := r.Reconcile(context.Background(), common.Address{}, PolicyFor(domain.RoleProducer), ledger.head)

	require.NoError(t, err)
	assert.Empty(t, got.ItemIDs)
	assert.Empty(t, ledger.queries, "no ledger query should be issued without an identity")
}

func TestReconcile_ProducerSeesBothDirectionsWithoutDuplicates(t *testing.T) {
	// GIVEN: items created by AA, one sent away, one received, one sent to itself
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.mint(2, "Olives", addrAA, 0, 2)
	ledger.mint(3, "Oil", addrBB, 2000, 3)
	ledger.transfer(1, addrAA, addrBB, 1000, 4)
	ledger.transfer(3, addrBB, addrAA, 500, 5)
	ledger.transfer(2, addrAA, addrAA, 100, 6)
	ledger.mint(4, "Other", addrCC, 100, 7)

	r := NewReconciler(ledger, BlockWindow{})

	// WHEN
	got, err := r.Reconcile(context.Background(), addrAA, PolicyFor(domain.RoleProducer), ledger.head)

	// THEN: every relevant item once, nothing from unrelated participants
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, got.ItemIDs)
	assert.Len(t, got.Created, 2)
	assert.Len(t, got.Transfers, 3, "the self transfer matches both filters but is kept once")

	inputIDs := map[uint64]bool{}
	for _, e := range ledger.events {
		inputIDs[e.ItemID] = true
	}
	seen := map[uint64]bool{}
	for _, id := range got.ItemIDs {
		assert.False(t, seen[id], "duplicate item id %d", id)
		assert.True(t, inputIDs[id], "item id %d not in input events", id)
		seen[id] = true
	}
}

func TestReconcile_RetailerSeesIncomingOnly(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Oil", addrAA, 5000, 1)
	ledger.mint(2, "Oil", addrBB, 5000, 2)
	ledger.transfer(1, addrAA, addrBB, 1000, 3)
	ledger.transfer(2, addrBB, addrCC, 1000, 4)

	r := NewReconciler(ledger, BlockWindow{})
	got, err := r.Reconcile(context.Background(), addrBB, PolicyFor(domain.RoleRetailer), ledger.head)

	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, got.ItemIDs)
	assert.Empty(t, got.Created)
	require.Len(t, got.Transfers, 1)
	assert.Equal(t, addrBB, got.Transfers[0].To)
}

func TestReconcile_FactorySeesCreatedAndIncoming(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.transfer(1, addrAA, addrBB, 1000, 2)
	ledger.mint(2, "Oil", addrBB, 300, 3)
	ledger.transfer(2, addrBB, addrCC, 100, 4)

	r := NewReconciler(ledger, BlockWindow{})
	got, err := r.Reconcile(context.Background(), addrBB, PolicyFor(domain.RoleFactory), ledger.head)

	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, got.ItemIDs)
	require.Len(t, got.Transfers, 1, "outgoing transfers are not part of a factory view")
}

func TestReconcile_AdminSeesEverything(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.mint(2, "Oil", addrBB, 300, 2)
	ledger.transfer(2, addrBB, addrCC, 100, 3)

	r := NewReconciler(ledger, BlockWindow{})
	got, err := r.Reconcile(context.Background(), addrCC, PolicyFor(domain.RoleAdmin), ledger.head)

	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, got.ItemIDs)
}

func TestReconcile_RespectsLookbackWindow(t *testing.T) {
	ledger := newFakeLedger()
	ledger.head = 100
	ledger.mint(1, "Olives", addrAA, 5000, 10)
	ledger.mint(2, "Olives", addrAA, 5000, 95)

	r := NewReconciler(ledger, BlockWindow{Lookback: 10})
	got, err := r.Reconcile(context.Background(), addrAA, PolicyFor(domain.RoleProducer), ledger.head)

	require.NoError(t, err)
	assert.Equal(t, uint64(91), got.FromBlock)
	assert.Equal(t, []uint64{2}, got.ItemIDs)
}

func TestReconcile_QueryFailureIsFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.failQuery[domain.EventItemTransferred] = errRPC

	r := NewReconciler(ledger, BlockWindow{})
	got, err := r.Reconcile(context.Background(), addrAA, PolicyFor(domain.RoleProducer), ledger.head)

	require.Error(t, err)
	assert.ErrorIs(t, err, errRPC)
	assert.Nil(t, got, "no partial result on failure")
}

func TestDedupEvents_OrdersByChainPosition(t *testing.T) {
	hash := common.HexToHash("0x01")
	events := []domain.RawEvent{
		{Kind: domain.EventItemTransferred, TxHash: common.HexToHash("0x02"), BlockNumber: 9, ItemID: 2},
		{Kind: domain.EventItemTransferred, TxHash: hash, BlockNumber: 3, LogIndex: 1, ItemID: 1},
		{Kind: domain.EventItemTransferred, TxHash: hash, BlockNumber: 3, LogIndex: 1, ItemID: 1},
		{Kind: domain.EventItemCreated, TxHash: hash, BlockNumber: 3, LogIndex: 0, ItemID: 1},
	}

	got := dedupEvents(events)

	require.Len(t, got, 3)
	assert.Equal(t, domain.EventItemCreated, got[0].Kind)
	assert.Equal(t, uint(1), got[1].LogIndex)
	assert.Equal(t, uint64(9), got[2].BlockNumber)
}
