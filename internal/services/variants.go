package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/sealedbid"
)

// variant is the closed set of two bidding state machines sharing one
// auction lifecycle: the public running-bid auction and the sealed-bid
// auction. Selected at engine construction.
type variant interface {
	name() string
	requiresWindow() bool
	settlesOnClose() bool

	// admitBid validates and records a bid against an auction the engine has
	// already confirmed to be open and inside its window. It may mutate the
	// auction's leader state and returns the durable bid reference.
	admitBid(ctx context.Context, a *domain.Auction, bid *domain.Bid) (string, error)

	// tally determines the winner at close time. An empty winner means the
	// auction closes without settlement; an error aborts the close entirely.
	tally(ctx context.Context, a *domain.Auction) (winner string, amount *big.Int, err error)
}

// openVariant: English auction. Every accepted bid becomes the public
// leader; funds are re-checked on each bid because balances move between
// bids (point-in-time check, not an escrow).
type openVariant struct {
	assets  domain.AssetLedger
	records domain.RecordLedger
	// operator is the address holding the payment-token allowance,
	// typically the settlement contract.
	operator string
}

func (v *openVariant) name() string         { return "open" }
func (v *openVariant) requiresWindow() bool { return true }
func (v *openVariant) settlesOnClose() bool { return true }

func (v *openVariant) admitBid(ctx context.Context, a *domain.Auction, bid *domain.Bid) (string, error) {
	if a.HasBid() {
		if bid.Amount.Cmp(a.CurrentBid) <= 0 {
			return "", fmt.Errorf("%w: must be higher than current bid of %s", domain.ErrBidTooLow, a.CurrentBid)
		}
	} else if bid.Amount.Cmp(a.MinBid) < 0 {
		return "", fmt.Errorf("%w: must be at least %s", domain.ErrBidTooLow, a.MinBid)
	}

	balance, err := v.assets.BalanceOf(ctx, bid.Bidder)
	if err != nil {
		return "", err
	}
	if balance.Cmp(bid.Amount) < 0 {
		return "", fmt.Errorf("%w: balance %s below bid %s", domain.ErrInsufficientFunds, balance, bid.Amount)
	}
	allowance, err := v.assets.Allowance(ctx, bid.Bidder, v.operator)
	if err != nil {
		return "", err
	}
	if allowance.Cmp(bid.Amount) < 0 {
		return "", fmt.Errorf("%w: allowance %s below bid %s", domain.ErrInsufficientFunds, allowance, bid.Amount)
	}

	// Bid records are append-only; the ledger keeps the full history even
	// though only the latest one is live.
	ref, err := v.records.CreateBid(ctx, bid)
	if err != nil {
		return "", err
	}

	a.CurrentBid = new(big.Int).Set(bid.Amount)
	a.HighestBidder = bid.Bidder
	if _, err := v.records.UpdateAuction(ctx, a.ID, domain.AuctionUpdate{
		CurrentBid:    a.CurrentBid,
		HighestBidder: &a.HighestBidder,
	}); err != nil {
		return "", err
	}

	return ref, nil
}

func (v *openVariant) tally(_ context.Context, a *domain.Auction) (string, *big.Int, error) {
	amount := a.CurrentBid
	if amount == nil {
		amount = big.NewInt(0)
	}
	return a.HighestBidder, amount, nil
}

// sealedVariant: bids go into a privacy-scoped store instead of a public
// leader field; the winner is determined only by the close tally, with the
// auction's MinBid acting as the reserve.
type sealedVariant struct {
	store domain.PrivateBidStore
}

func (v *sealedVariant) name() string         { return "sealed" }
func (v *sealedVariant) requiresWindow() bool { return false }
func (v *sealedVariant) settlesOnClose() bool { return false }

func (v *sealedVariant) admitBid(ctx context.Context, _ *domain.Auction, bid *domain.Bid) (string, error) {
	// Overwrite-on-resubmit: one live bid per (auction, bidder).
	if err := v.store.PutBid(ctx, bid); err != nil {
		return "", err
	}
	return "", nil
}

func (v *sealedVariant) tally(ctx context.Context, a *domain.Auction) (string, *big.Int, error) {
	bids, err := v.store.BidsForAuction(ctx, a.ID)
	if err != nil {
		return "", nil, err
	}
	winner, err := sealedbid.SelectWinner(bids, a.MinBid)
	if err != nil {
		return "", nil, err
	}
	return winner.Bidder, winner.Amount, nil
}
