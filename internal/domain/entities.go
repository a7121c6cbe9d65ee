package domain

import (
	"math/big"
)

type AuctionStatus string

const (
	AuctionOpen   AuctionStatus = "OPEN"
	AuctionClosed AuctionStatus = "CLOSED"
)

// Auction is the orchestrator's view of an auction. The record ledger is the
// durable owner; in-process copies are rebuildable caches.
//
// All timestamps are unix seconds in the asset ledger's time domain. All
// amounts are big integers in the payment token's smallest unit.
type Auction struct {
	ID            string
	AssetID       string
	Creator       string
	StartTime     int64
	EndTime       int64
	MinBid        *big.Int
	CurrentBid    *big.Int
	HighestBidder string
	Status        AuctionStatus
	CreatedAt     int64
	SettlementRef string

	// Sealed-bid variant only: filled in by the close tally.
	Winner    string
	WinAmount *big.Int
}

// Clone returns a deep copy so cached auctions can be handed out without
// sharing mutable big.Int state with the engine's write path.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	c := *a
	if a.MinBid != nil {
		c.MinBid = new(big.Int).Set(a.MinBid)
	}
	if a.CurrentBid != nil {
		c.CurrentBid = new(big.Int).Set(a.CurrentBid)
	}
	if a.WinAmount != nil {
		c.WinAmount = new(big.Int).Set(a.WinAmount)
	}
	return &c
}

// HasBid reports whether any bid has been accepted yet.
func (a *Auction) HasBid() bool {
	return a.CurrentBid != nil && a.CurrentBid.Sign() > 0
}

type Bid struct {
	AuctionID     string
	Bidder        string
	Amount        *big.Int
	Timestamp     int64
	SettlementRef string
}

func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	c := *b
	if b.Amount != nil {
		c.Amount = new(big.Int).Set(b.Amount)
	}
	return &c
}

// AuctionUpdate is a partial write-through to the record ledger. Nil fields
// are left untouched.
type AuctionUpdate struct {
	CurrentBid    *big.Int
	HighestBidder *string
	Status        *AuctionStatus
	SettlementRef *string
	Winner        *string
	WinAmount     *big.Int
}

type CloseJob struct {
	ID        string
	AuctionID string
	RunAt     int64
	Status    JobStatus
	CreatedAt int64
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobExecuted JobStatus = "executed"
)
