package sealedbid

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

func bid(bidder string, amount int64, ts int64) *domain.Bid {
	return &domain.Bid{
		AuctionID: "auction-1",
		Bidder:    bidder,
		Amount:    big.NewInt(amount),
		Timestamp: ts,
	}
}

func TestSelectWinnerHighestBidWins(t *testing.T) {
	winner, err := SelectWinner([]*domain.Bid{
		bid("alice", 1500, 100),
		bid("bob", 2000, 200),
		bid("carol", 1200, 300),
	}, big.NewInt(1000))

	require.NoError(t, err)
	assert.Equal(t, "bob", winner.Bidder)
	assert.Equal(t, "2000", winner.Amount.String())
}

func TestSelectWinnerTieGoesToEarlierBid(t *testing.T) {
	winner, err := SelectWinner([]*domain.Bid{
		bid("late", 2000, 500),
		bid("early", 2000, 100),
	}, big.NewInt(0))

	require.NoError(t, err)
	assert.Equal(t, "early", winner.Bidder)
}

func TestSelectWinnerEnforcesReserve(t *testing.T) {
	_, err := SelectWinner([]*domain.Bid{
		bid("alice", 400, 100),
	}, big.NewInt(500))

	assert.ErrorIs(t, err, domain.ErrNoValidBids)
}

func TestSelectWinnerReserveIsInclusive(t *testing.T) {
	winner, err := SelectWinner([]*domain.Bid{
		bid("alice", 500, 100),
	}, big.NewInt(500))

	require.NoError(t, err)
	assert.Equal(t, "alice", winner.Bidder)
}

func TestSelectWinnerNoBids(t *testing.T) {
	_, err := SelectWinner(nil, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrNoValidBids)

	_, err = SelectWinner([]*domain.Bid{}, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrNoValidBids)
}
