package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"olivetrace/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ProducerDashboard(t *testing.T) {
	// GIVEN: AA produced olives and oil and shipped some oil to BB
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.mint(2, "Olives", addrAA, 0, 2)
	ledger.mint(3, "Oil", addrAA, 2000, 3)
	ledger.transfer(3, addrAA, addrBB, 1000, 4)
	ledger.addPending(domain.TransferRecord{ID: 42, ItemID: 3, From: addrAA, To: addrBB, Quantity: 1000})

	loader := NewLoader(ledger, BlockWindow{}, 4, nil)

	// WHEN
	view, err := loader.Load(context.Background(), Request{Identity: addrAA, Role: domain.RoleProducer})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, ledger.head, view.BlockHeight)
	require.Len(t, view.Aggregates, 2)
	assert.Equal(t, domain.Quantity(5000), aggregateByName(t, view.Aggregates, "Olives").TotalBalance)

	require.Len(t, view.Transfers, 1)
	assert.Equal(t, uint64(42), view.Transfers[0].TransferID)
	assert.Equal(t, domain.TransferInTransit, view.Transfers[0].Status)
	assert.Equal(t, "Oil", view.Transfers[0].ItemName)
}

func TestLoad_IncludeZeroBalanceOverride(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 0, 1)

	loader := NewLoader(ledger, BlockWindow{}, 1, nil)
	exclude := false

	view, err := loader.Load(context.Background(), Request{Identity: addrAA, Role: domain.RoleProducer, IncludeZeroBalance: &exclude})

	require.NoError(t, err)
	assert.Empty(t, view.Aggregates)
}

func TestLoad_BlockHeightFailureIsFatal(t *testing.T) {
	ledger := newFakeLedger()
	ledger.blockHook = func(context.Context) error { return errRPC }

	_, err := NewLoader(ledger, BlockWindow{}, 1, nil).Load(context.Background(), Request{Identity: addrAA, Role: domain.RoleProducer})

	assert.ErrorIs(t, err, errRPC)
}

func TestLoad_ServesAndInvalidatesSnapshots(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	cache := NewMemoryCache(time.Minute, 16)
	loader := NewLoader(ledger, BlockWindow{}, 1, cache)
	req := Request{Identity: addrAA, Role: domain.RoleProducer}

	first, err := loader.Load(context.Background(), req)
	require.NoError(t, err)
	queries := len(ledger.queries)

	second, err := loader.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, first, second, "same block height is served from the cache")
	assert.Equal(t, queries, len(ledger.queries))

	loader.Invalidate(context.Background(), addrAA)
	assert.Equal(t, 0, cache.Len())

	third, err := loader.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Greater(t, len(ledger.queries), queries)
}

func TestMemoryCache_Expires(t *testing.T) {
	cache := NewMemoryCache(50*time.Millisecond, 16)
	key := SnapshotKey{Identity: addrAA, Role: domain.RoleProducer, BlockHeight: 5}

	require.NoError(t, cache.Set(context.Background(), key, &View{BlockHeight: 5}))
	_, ok, _ := cache.Get(context.Background(), key)
	assert.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok, _ = cache.Get(context.Background(), key)
	assert.False(t, ok)
}

func TestLoad_CacheStaysBoundedAsChainAdvances(t *testing.T) {
	// GIVEN: a small cache and a chain that moves one block per load
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	cache := NewMemoryCache(time.Hour, 8)
	loader := NewLoader(ledger, BlockWindow{}, 1, cache)
	req := Request{Identity: addrAA, Role: domain.RoleProducer}

	// WHEN: the dashboard is loaded at 50 different heights
	for height := uint64(1); height <= 50; height++ {
		ledger.head = height
		_, err := loader.Load(context.Background(), req)
		require.NoError(t, err)
	}

	// THEN: snapshots of old heights were evicted
	assert.Equal(t, 8, cache.Len())
	_, ok, _ := cache.Get(context.Background(), SnapshotKey{Identity: addrAA, Role: domain.RoleProducer, IncludeZeroBalance: true, BlockHeight: 50})
	assert.True(t, ok, "the latest height is kept")
	_, ok, _ = cache.Get(context.Background(), SnapshotKey{Identity: addrAA, Role: domain.RoleProducer, IncludeZeroBalance: true, BlockHeight: 1})
	assert.False(t, ok)
}

func TestLoad_PartialViewIsNotCached(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.mint(2, "Oil", addrAA, 2000, 2)
	ledger.failAttributes[2] = errRPC
	cache := NewMemoryCache(time.Minute, 16)
	loader := NewLoader(ledger, BlockWindow{}, 1, cache)

	view, err := loader.Load(context.Background(), Request{Identity: addrAA, Role: domain.RoleProducer})

	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, view.SkippedItems)
	assert.Equal(t, 0, cache.Len())

	delete(ledger.failAttributes, 2)
	view, err = loader.Load(context.Background(), Request{Identity: addrAA, Role: domain.RoleProducer})
	require.NoError(t, err)
	assert.Empty(t, view.SkippedItems)
	assert.Len(t, view.Aggregates, 2)
	assert.Equal(t, 1, cache.Len())
}

func TestSession_DiscardsSupersededRefresh(t *testing.T) {
	// GIVEN: the first refresh blocks inside the ledger until released
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)

	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32
	ledger.blockHook = func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	}

	session := NewSession(NewLoader(ledger, BlockWindow{}, 1, nil), Request{Identity: addrAA, Role: domain.RoleProducer})

	type result struct {
		view *View
		err  error
	}
	stale := make(chan result, 1)
	go func() {
		view, err := session.Refresh(context.Background())
		stale <- result{view, err}
	}()
	<-entered

	// WHEN: a newer refresh starts and finishes first
	fresh, err := session.Refresh(context.Background())
	require.NoError(t, err)
	close(release)
	old := <-stale

	// THEN: the older result is discarded
	assert.ErrorIs(t, old.err, domain.ErrSupersededLoad)
	assert.Nil(t, old.view)
	assert.Same(t, fresh, session.Current())
}

func TestSessions_TrackAndEvict(t *testing.T) {
	loader := NewLoader(newFakeLedger(), BlockWindow{}, 1, nil)
	sessions := NewSessions(loader, 2)

	a := sessions.Track(Request{Identity: addrAA, Role: domain.RoleProducer})
	assert.Same(t, a, sessions.Track(Request{Identity: addrAA, Role: domain.RoleProducer}))

	time.Sleep(time.Millisecond)
	sessions.Track(Request{Identity: addrBB, Role: domain.RoleRetailer})
	time.Sleep(time.Millisecond)
	sessions.Track(Request{Identity: addrBB, Role: domain.RoleAdmin})

	assert.Equal(t, 2, sessions.Len())
	assert.Empty(t, sessions.ForAddress(addrAA), "least recently tracked session is evicted")
	assert.Len(t, sessions.ForAddress(addrBB), 2)
}

func TestTrace_ItemHistory(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Oil", addrAA, 3000, 1)
	ledger.mint(2, "Olives", addrAA, 3000, 2)
	ledger.transfer(1, addrAA, addrBB, 1000, 3)
	ledger.transfer(1, addrBB, addrCC, 500, 4)
	ledger.addPending(domain.TransferRecord{ID: 9, ItemID: 1, From: addrBB, To: addrCC, Quantity: 500})

	report, err := NewLoader(ledger, BlockWindow{}, 1, nil).Trace(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "Oil", report.Token.Name)
	require.NotNil(t, report.Origin)
	assert.Equal(t, addrAA, report.Origin.Creator)
	require.Len(t, report.Transfers, 2)
	assert.Equal(t, domain.TransferCompleted, report.Transfers[0].Status)
	assert.Equal(t, uint64(9), report.Transfers[1].TransferID)
	assert.Equal(t, domain.TransferInTransit, report.Transfers[1].Status)
}

func TestTrace_UnreadableItemFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failToken[1] = errRPC

	_, err := NewLoader(ledger, BlockWindow{}, 1, nil).Trace(context.Background(), 1)

	assert.ErrorIs(t, err, errRPC)
}

func TestSessions_RefreshPublishesNewViews(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	sessions := NewSessions(NewLoader(ledger, BlockWindow{}, 1, nil), 4)
	producer := sessions.Track(Request{Identity: addrAA, Role: domain.RoleProducer})
	sessions.Track(Request{Identity: addrBB, Role: domain.RoleRetailer})

	n, err := sessions.Refresh(context.Background(), addrAA)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotNil(t, producer.Current())
	assert.Len(t, producer.Current().Aggregates, 1)

	ledger.blockHook = func(context.Context) error { return errRPC }
	_, err = sessions.Refresh(context.Background(), addrAA)
	assert.ErrorIs(t, err, errRPC)
}

func TestSessionView_RebuildsPartialView(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mint(1, "Olives", addrAA, 5000, 1)
	ledger.mint(2, "Oil", addrAA, 2000, 2)
	ledger.failAttributes[2] = errRPC
	session := NewSessions(NewLoader(ledger, BlockWindow{}, 1, nil), 4).Track(Request{Identity: addrAA, Role: domain.RoleProducer})

	partial, err := session.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, partial.SkippedItems)

	delete(ledger.failAttributes, 2)
	full, err := session.View(context.Background())

	require.NoError(t, err)
	assert.NotSame(t, partial, full, "same height, but a partial view is not served again")
	assert.Empty(t, full.SkippedItems)
	assert.Same(t, full, session.Current())

	again, err := session.View(context.Background())
	require.NoError(t, err)
	assert.Same(t, full, again)
}
