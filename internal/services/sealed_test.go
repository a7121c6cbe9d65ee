package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/memory"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

type sealedFixture struct {
	engine  *Engine
	assets  *fakeAssetLedger
	records *fakeRecordLedger
	store   *memory.PrivateBidStore
}

func newSealedFixture() *sealedFixture {
	assets := newFakeAssetLedger()
	records := newFakeRecordLedger()
	store := memory.NewPrivateBidStore()
	engine := NewSealedEngine(assets, records, memory.NewAuctionCache(), store,
		Limits{MinDuration: time.Hour, MaxDuration: 7 * 24 * time.Hour},
		logger.NewNop())
	return &sealedFixture{engine: engine, assets: assets, records: records, store: store}
}

func (x *sealedFixture) createAuction(t *testing.T, reserve int64) *domain.Auction {
	t.Helper()
	a, _, err := x.engine.CreateAuction(context.Background(), CreateAuctionRequest{
		AssetID: assetID,
		Creator: creator,
		MinBid:  big.NewInt(reserve),
	})
	require.NoError(t, err)
	return a
}

func TestSealedAuctionNeedsNoWindow(t *testing.T) {
	x := newSealedFixture()

	a := x.createAuction(t, 500)
	assert.Zero(t, a.StartTime)
	assert.Zero(t, a.EndTime)
	assert.Equal(t, domain.AuctionOpen, a.Status)
}

func TestSealedBidsStayHidden(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)

	// The public view never shows a leader before close.
	got, err := x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, got.HasBid())
	assert.Empty(t, got.HighestBidder)

	// No funds gates either: commitment only, value moves out of band.
	assert.Empty(t, x.records.bids[a.ID])
}

func TestSealedResubmitOverwrites(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)
	_, err = x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(900))
	require.NoError(t, err)

	b, err := x.engine.ReadMyBid(context.Background(), a.ID, bidder1)
	require.NoError(t, err)
	assert.Equal(t, "900", b.Amount.String())

	bids, err := x.store.BidsForAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestSealedReadMyBidScope(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)

	_, err = x.engine.ReadMyBid(context.Background(), a.ID, bidder2)
	assert.ErrorIs(t, err, domain.ErrBidNotFound)
}

func TestSealedCloseSelectsHighest(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	x.assets.now = 100
	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)
	x.assets.now = 200
	_, err = x.engine.PlaceBid(context.Background(), a.ID, bidder2, big.NewInt(2000))
	require.NoError(t, err)

	closed, _, err := x.engine.CloseAuction(context.Background(), a.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.AuctionClosed, closed.Status)
	assert.Equal(t, bidder2, closed.Winner)
	assert.Equal(t, "2000", closed.WinAmount.String())
	// Settlement happens off-ledger; nothing moved here.
	assert.Empty(t, x.assets.assetTransfers)
	assert.Empty(t, closed.SettlementRef)
}

func TestSealedCloseTieGoesToEarlierBid(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	x.assets.now = 100
	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(2000))
	require.NoError(t, err)
	x.assets.now = 200
	_, err = x.engine.PlaceBid(context.Background(), a.ID, bidder2, big.NewInt(2000))
	require.NoError(t, err)

	closed, _, err := x.engine.CloseAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, bidder1, closed.Winner)
}

func TestSealedCloseBelowReserveStaysOpen(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(400))
	require.NoError(t, err)

	_, _, err = x.engine.CloseAuction(context.Background(), a.ID)
	assert.ErrorIs(t, err, domain.ErrNoValidBids)

	got, err := x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionOpen, got.Status)

	// A better bid can still come in and close succeeds.
	_, err = x.engine.PlaceBid(context.Background(), a.ID, bidder2, big.NewInt(500))
	require.NoError(t, err)
	closed, _, err := x.engine.CloseAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, bidder2, closed.Winner)
}

func TestSealedSettlementRefWriteOnce(t *testing.T) {
	x := newSealedFixture()
	a := x.createAuction(t, 500)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)

	// Not yet closed.
	_, err = x.engine.UpdateSettlementRef(context.Background(), a.ID, "0xdeadbeef")
	assert.ErrorIs(t, err, domain.ErrAuctionNotClosed)

	_, _, err = x.engine.CloseAuction(context.Background(), a.ID)
	require.NoError(t, err)

	updated, err := x.engine.UpdateSettlementRef(context.Background(), a.ID, "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", updated.SettlementRef)

	_, err = x.engine.UpdateSettlementRef(context.Background(), a.ID, "0xother")
	assert.ErrorIs(t, err, domain.ErrSettlementRefSet)

	// The first reference survives.
	got, err := x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", got.SettlementRef)
}

func TestSealedOperationsRejectedOnOpenEngine(t *testing.T) {
	x := newOpenFixture()
	a := x.createAuction(t)

	_, err := x.engine.ReadMyBid(context.Background(), a.ID, bidder1)
	assert.Equal(t, domain.KindValidation, domain.Kind(err))

	_, err = x.engine.UpdateSettlementRef(context.Background(), a.ID, "0xref")
	assert.Equal(t, domain.KindValidation, domain.Kind(err))
}
