package domain

import (
	"context"
	"math/big"
)

// AssetLedger is the value-transfer ledger: asset ownership, payment token
// balances and the chain's time oracle. Implementations are expected to be
// safe for concurrent use.
type AssetLedger interface {
	OwnerOf(ctx context.Context, assetID string) (string, error)
	BalanceOf(ctx context.Context, identity string) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	TransferAsset(ctx context.Context, assetID, from, to string) (string, error)
	TransferValue(ctx context.Context, from, to string, amount *big.Int) (string, error)
	CurrentTime(ctx context.Context) (int64, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

// RecordLedger is the durable source of truth for auction and bid history.
// Bid records are append-only; auction records are created once and updated
// through partial writes. GetAuction returns ErrAuctionNotFound for unknown
// ids.
type RecordLedger interface {
	CreateAuction(ctx context.Context, a *Auction) (string, error)
	UpdateAuction(ctx context.Context, auctionID string, upd AuctionUpdate) (string, error)
	FinalizeAuction(ctx context.Context, auctionID string, finalPrice *big.Int, winner, settlementRef string) (string, error)
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	CreateBid(ctx context.Context, b *Bid) (string, error)
	BidsForAuction(ctx context.Context, auctionID string) ([]*Bid, error)
}

// AuctionCache is the process-local (or shared) read-through view. It is not
/// authoritative: a miss always falls back to the record ledger, and losing
// the cache entirely is safe.
type AuctionCache interface {
	Get(ctx context.Context, auctionID string) (*Auction, bool)
	Put(ctx context.Context, a *Auction)
}

// PrivateBidStore holds sealed bids keyed by (auction, bidder). A resubmitted
// bid overwrites the previous one. BidsForAuction is only called by the close
// tally; GetBid returns ErrBidNotFound for absent entries.
type PrivateBidStore interface {
	PutBid(ctx context.Context, b *Bid) error
	GetBid(ctx context.Context, auctionID, bidder string) (*Bid, error)
	BidsForAuction(ctx context.Context, auctionID string) ([]*Bid, error)
}

type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventHandler func(event *AuctionEvent) error

type EventSubscriber interface {
	SubscribeAuctionEvents(ctx context.Context, handler EventHandler) error
}

// CloseJobRepository persists deferred close jobs for the cron sweeper.
type CloseJobRepository interface {
	CreateJob(ctx context.Context, job *CloseJob) error
	DueJobs(ctx context.Context, before int64) ([]*CloseJob, error)
	MarkExecuted(ctx context.Context, jobID string) error
}

// LeaderElection gates the close sweeper so only one instance settles
// auctions when several run against the same ledgers.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
