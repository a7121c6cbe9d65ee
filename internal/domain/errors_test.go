package domain

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", Validationf("bad input"), KindValidation},
		{"not found", ErrAuctionNotFound, KindNotFound},
		{"bid not found", ErrBidNotFound, KindNotFound},
		{"authorization", ErrNotAssetOwner, KindAuthorization},
		{"funds", fmt.Errorf("%w: balance 10 below bid 100", ErrInsufficientFunds), KindInsufficientFunds},
		{"state conflict", ErrAuctionAlreadyClosed, KindStateConflict},
		{"bid too low wrapped", fmt.Errorf("%w: must be higher", ErrBidTooLow), KindStateConflict},
		{"no valid bids", ErrNoValidBids, KindStateConflict},
		{"ledger", &LedgerError{Ledger: "asset", Op: "ownerOf", Err: errors.New("rpc down")}, KindLedgerUnavailable},
		{"partial", &PartialSettlementError{AuctionID: "a1", AssetTxRef: "0x1", Err: errors.New("reverted")}, KindPartialSettlement},
		{"unknown", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestPartialSettlementUnwraps(t *testing.T) {
	cause := errors.New("reverted")
	err := &PartialSettlementError{AuctionID: "a1", AssetTxRef: "0x1", Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestAuctionClone(t *testing.T) {
	a := &Auction{ID: "a1", MinBid: big.NewInt(1000), CurrentBid: big.NewInt(1000)}
	c := a.Clone()
	c.CurrentBid.SetInt64(5)
	assert.Equal(t, "1000", a.CurrentBid.String())
}
