package memory

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

func TestAuctionCacheClonesOnBothPaths(t *testing.T) {
	cache := NewAuctionCache()
	ctx := context.Background()

	a := &domain.Auction{
		ID:         "a1",
		MinBid:     big.NewInt(1000),
		CurrentBid: big.NewInt(1500),
		Status:     domain.AuctionOpen,
	}
	cache.Put(ctx, a)

	// Mutating the original must not leak into the cache.
	a.CurrentBid.SetInt64(9999)

	got, ok := cache.Get(ctx, "a1")
	require.True(t, ok)
	assert.Equal(t, "1500", got.CurrentBid.String())

	// Mutating a read copy must not leak either.
	got.CurrentBid.SetInt64(1)
	again, ok := cache.Get(ctx, "a1")
	require.True(t, ok)
	assert.Equal(t, "1500", again.CurrentBid.String())
}

func TestAuctionCacheConcurrentAccess(t *testing.T) {
	cache := NewAuctionCache()
	ctx := context.Background()

	// Readers and writers hammer one entry; clones mean no reader ever sees
	// a torn or shared big.Int. Run with -race.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cache.Put(ctx, &domain.Auction{
					ID:         "a1",
					MinBid:     big.NewInt(1000),
					CurrentBid: big.NewInt(int64(1000 + i*200 + j)),
					Status:     domain.AuctionOpen,
				})
				if a, ok := cache.Get(ctx, "a1"); ok {
					assert.Equal(t, "1000", a.MinBid.String())
					a.CurrentBid.SetInt64(-1) // must never leak back
				}
			}
		}(i)
	}
	wg.Wait()

	a, ok := cache.Get(ctx, "a1")
	require.True(t, ok)
	assert.Equal(t, "1000", a.MinBid.String())
	assert.True(t, a.CurrentBid.Sign() > 0, "a reader's mutation leaked into the cache")
	assert.Equal(t, 1, cache.Len())
}

func TestAuctionCacheMiss(t *testing.T) {
	cache := NewAuctionCache()
	_, ok := cache.Get(context.Background(), "missing")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestPrivateBidStoreOverwrite(t *testing.T) {
	store := NewPrivateBidStore()
	ctx := context.Background()

	require.NoError(t, store.PutBid(ctx, &domain.Bid{
		AuctionID: "a1", Bidder: "alice", Amount: big.NewInt(1500), Timestamp: 100,
	}))
	require.NoError(t, store.PutBid(ctx, &domain.Bid{
		AuctionID: "a1", Bidder: "alice", Amount: big.NewInt(900), Timestamp: 200,
	}))

	b, err := store.GetBid(ctx, "a1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "900", b.Amount.String())
	assert.EqualValues(t, 200, b.Timestamp)

	bids, err := store.BidsForAuction(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestPrivateBidStoreAbsent(t *testing.T) {
	store := NewPrivateBidStore()
	_, err := store.GetBid(context.Background(), "a1", "nobody")
	assert.ErrorIs(t, err, domain.ErrBidNotFound)
}

func TestCloseJobRepositoryLifecycle(t *testing.T) {
	repo := NewCloseJobRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateJob(ctx, &domain.CloseJob{
		ID: "j1", AuctionID: "a1", RunAt: 100, Status: domain.JobPending,
	}))
	require.NoError(t, repo.CreateJob(ctx, &domain.CloseJob{
		ID: "j2", AuctionID: "a2", RunAt: 500, Status: domain.JobPending,
	}))

	due, err := repo.DueJobs(ctx, 300)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "j1", due[0].ID)

	require.NoError(t, repo.MarkExecuted(ctx, "j1"))
	due, err = repo.DueJobs(ctx, 1000)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "j2", due[0].ID)
}
