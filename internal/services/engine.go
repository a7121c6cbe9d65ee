package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/utils"
)

// Limits bounds the auction window accepted at creation.
type Limits struct {
	MinDuration time.Duration
	MaxDuration time.Duration
}

// CloseJobScheduler registers a deferred close attempt for an auction.
type CloseJobScheduler interface {
	ScheduleClose(ctx context.Context, auctionID string, runAt int64) error
}

// Engine is the auction lifecycle state machine: creation, bid admission,
// time-window enforcement, closing and cross-ledger settlement. The record
// ledger is the source of truth; the cache is a rebuildable view populated
// on every read-through and write-through.
type Engine struct {
	assets  domain.AssetLedger
	records domain.RecordLedger
	cache   domain.AuctionCache
	events  domain.EventPublisher
	sched   CloseJobScheduler
	variant variant
	sealed  *sealedVariant
	limits  Limits
	locks   *keyedMutex
	log     logger.Logger
}

type EngineOption func(*Engine)

func WithEventPublisher(pub domain.EventPublisher) EngineOption {
	return func(e *Engine) { e.events = pub }
}

func WithCloseScheduler(s CloseJobScheduler) EngineOption {
	return func(e *Engine) { e.sched = s }
}

// NewOpenEngine builds an engine for the public running-bid variant.
func NewOpenEngine(
	assets domain.AssetLedger,
	records domain.RecordLedger,
	cache domain.AuctionCache,
	operator string,
	limits Limits,
	log logger.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		assets:  assets,
		records: records,
		cache:   cache,
		variant: &openVariant{assets: assets, records: records, operator: operator},
		limits:  limits,
		locks:   newKeyedMutex(),
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSealedEngine builds an engine for the sealed-bid variant, with bids
// held in a privacy-scoped store until close.
func NewSealedEngine(
	assets domain.AssetLedger,
	records domain.RecordLedger,
	cache domain.AuctionCache,
	bids domain.PrivateBidStore,
	limits Limits,
	log logger.Logger,
	opts ...EngineOption,
) *Engine {
	sv := &sealedVariant{store: bids}
	e := &Engine{
		assets:  assets,
		records: records,
		cache:   cache,
		variant: sv,
		sealed:  sv,
		limits:  limits,
		locks:   newKeyedMutex(),
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetCloseScheduler wires the scheduler after construction; the scheduler
// itself needs the engine to execute close jobs.
func (e *Engine) SetCloseScheduler(s CloseJobScheduler) {
	e.sched = s
}

type CreateAuctionRequest struct {
	AssetID   string
	Creator   string
	MinBid    *big.Int
	StartTime int64
	EndTime   int64
}

// CreateAuction validates the request, verifies asset ownership on the value
// ledger and persists the new auction. The auction exists only once the
// durable write confirmed; nothing is cached on failure.
func (e *Engine) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*domain.Auction, string, error) {
	if req.AssetID == "" || req.Creator == "" {
		return nil, "", domain.Validationf("assetId and creator are required")
	}
	if req.MinBid == nil || req.MinBid.Sign() <= 0 {
		return nil, "", domain.Validationf("minBid must be a positive amount")
	}
	if e.variant.requiresWindow() || req.StartTime != 0 || req.EndTime != 0 {
		if req.StartTime <= 0 || req.EndTime <= 0 {
			return nil, "", domain.Validationf("startTime and endTime are required")
		}
		d := time.Duration(req.EndTime-req.StartTime) * time.Second
		if d < e.limits.MinDuration {
			return nil, "", domain.Validationf("auction duration must be at least %s", e.limits.MinDuration)
		}
		if d > e.limits.MaxDuration {
			return nil, "", domain.Validationf("auction duration cannot exceed %s", e.limits.MaxDuration)
		}
	}

	// Sealed deployments without an asset ledger trust the curator identity
	// instead of proving ownership.
	if e.assets != nil {
		owner, err := e.assets.OwnerOf(ctx, req.AssetID)
		if err != nil {
			return nil, "", err
		}
		if !strings.EqualFold(owner, req.Creator) {
			return nil, "", domain.ErrNotAssetOwner
		}
	}

	a := &domain.Auction{
		ID:         utils.NewID(),
		AssetID:    req.AssetID,
		Creator:    req.Creator,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		MinBid:     new(big.Int).Set(req.MinBid),
		CurrentBid: big.NewInt(0),
		Status:     domain.AuctionOpen,
		CreatedAt:  time.Now().Unix(),
	}

	ref, err := e.records.CreateAuction(ctx, a)
	if err != nil {
		return nil, "", err
	}
	e.cache.Put(ctx, a)

	if e.sched != nil && a.EndTime > 0 {
		if err := e.sched.ScheduleClose(ctx, a.ID, a.EndTime); err != nil {
			e.log.Error("Failed to schedule close job", "auction_id", a.ID, "error", err)
		}
	}
	e.publish(ctx, &domain.AuctionEvent{
		Type:      domain.EventAuctionCreated,
		AuctionID: a.ID,
		Timestamp: a.CreatedAt,
	})

	e.log.Info("Auction created", "auction_id", a.ID, "asset_id", a.AssetID, "variant", e.variant.name())
	return a, ref, nil
}

// GetAuction reads through the cache to the record ledger. It never flips
// state: an expired auction stays OPEN until closed explicitly.
func (e *Engine) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return e.lookup(ctx, auctionID)
}

// GetAuctionBids returns the durable bid history for the open variant.
func (e *Engine) GetAuctionBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	if _, err := e.lookup(ctx, auctionID); err != nil {
		return nil, err
	}
	return e.records.BidsForAuction(ctx, auctionID)
}

type PlaceBidResult struct {
	Bid       *domain.Bid
	RecordRef string
	Auction   *domain.Auction
}

// PlaceBid runs the ordered admission gates and, on success, records the bid
// and the new leader state. Each gate short-circuits with no side effects.
// The per-auction lock covers the whole read-validate-write sequence.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, bidder string, amount *big.Int) (*PlaceBidResult, error) {
	if bidder == "" {
		return nil, domain.Validationf("bidder is required")
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, domain.Validationf("amount must be a non-negative integer")
	}

	unlock := e.locks.Lock(auctionID)
	defer unlock()

	a, err := e.lookup(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AuctionOpen {
		return nil, domain.ErrAuctionNotOpen
	}

	// Ledger time, not local wall-clock: bids are judged in the same time
	// domain the settlement runs in.
	now, err := e.now(ctx, a)
	if err != nil {
		return nil, err
	}
	if a.EndTime > 0 {
		if now < a.StartTime {
			return nil, domain.ErrAuctionNotStarted
		}
		if now >= a.EndTime {
			return nil, domain.ErrAuctionEnded
		}
	}

	bid := &domain.Bid{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    new(big.Int).Set(amount),
		Timestamp: now,
	}

	ref, err := e.variant.admitBid(ctx, a, bid)
	if err != nil {
		return nil, err
	}
	e.cache.Put(ctx, a)

	e.publish(ctx, &domain.AuctionEvent{
		Type:      domain.EventBidAccepted,
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    bid.Amount.String(),
		Timestamp: now,
	})

	e.log.Info("Bid accepted", "auction_id", auctionID, "bidder", bidder, "amount", bid.Amount.String())
	return &PlaceBidResult{Bid: bid, RecordRef: ref, Auction: a}, nil
}

// CloseAuction transitions OPEN -> CLOSED and, for the open variant,
// performs settlement: asset first, then payment. A payment failure after
// the asset moved still commits CLOSED and surfaces a PartialSettlementError
// for manual reconciliation; reverting a possibly-executed asset transfer is
// unsafe. A failed sealed tally leaves the auction OPEN.
func (e *Engine) CloseAuction(ctx context.Context, auctionID string) (*domain.Auction, string, error) {
	unlock := e.locks.Lock(auctionID)
	defer unlock()

	a, err := e.lookup(ctx, auctionID)
	if err != nil {
		return nil, "", err
	}
	if a.Status == domain.AuctionClosed {
		return nil, "", domain.ErrAuctionAlreadyClosed
	}
	if a.EndTime > 0 {
		now, err := e.now(ctx, a)
		if err != nil {
			return nil, "", err
		}
		if now < a.EndTime {
			return nil, "", domain.ErrAuctionNotEnded
		}
	}

	winner, amount, err := e.variant.tally(ctx, a)
	if err != nil {
		return nil, "", err
	}

	var partial *domain.PartialSettlementError
	settlementRef := ""
	if e.variant.settlesOnClose() && winner != "" {
		assetRef, err := e.assets.TransferAsset(ctx, a.AssetID, a.Creator, winner)
		if err != nil {
			// Nothing moved; the close did not occur.
			return nil, "", err
		}
		payRef, err := e.assets.TransferValue(ctx, winner, a.Creator, amount)
		if err != nil {
			settlementRef = "asset:" + assetRef
			partial = &domain.PartialSettlementError{AuctionID: a.ID, AssetTxRef: assetRef, Err: err}
			e.log.Error("Partial settlement: asset transferred but payment failed",
				"auction_id", a.ID, "asset_tx", assetRef, "winner", winner, "error", err)
		} else {
			settlementRef = fmt.Sprintf("asset:%s;payment:%s", assetRef, payRef)
		}
	}

	a.Status = domain.AuctionClosed
	a.SettlementRef = settlementRef
	if !e.variant.settlesOnClose() {
		a.Winner = winner
		a.WinAmount = amount
	}

	finalizeRef, ferr := e.records.FinalizeAuction(ctx, a.ID, amount, winner, settlementRef)
	// The transfers already executed; the cache must reflect CLOSED even if
	// the finalize record could not be written.
	e.cache.Put(ctx, a)

	e.publish(ctx, &domain.AuctionEvent{
		Type:      domain.EventAuctionClosed,
		AuctionID: a.ID,
		Winner:    winner,
		Amount:    amount.String(),
		Timestamp: time.Now().Unix(),
	})

	if partial != nil {
		if ferr != nil {
			e.log.Error("Finalize record write failed after partial settlement",
				"auction_id", a.ID, "error", ferr)
		}
		return a, finalizeRef, partial
	}
	if ferr != nil {
		return a, "", ferr
	}

	e.log.Info("Auction closed", "auction_id", a.ID, "winner", winner, "final_price", amount.String())
	return a, finalizeRef, nil
}

// ReadMyBid returns the calling bidder's own sealed bid. There is no path to
// another party's bid before close.
func (e *Engine) ReadMyBid(ctx context.Context, auctionID, bidder string) (*domain.Bid, error) {
	if e.sealed == nil {
		return nil, domain.Validationf("sealed-bid operations are not enabled for this deployment")
	}
	if bidder == "" {
		return nil, domain.Validationf("bidder is required")
	}
	if _, err := e.lookup(ctx, auctionID); err != nil {
		return nil, err
	}
	return e.sealed.store.GetBid(ctx, auctionID, bidder)
}

// UpdateSettlementRef attaches the out-of-band value-transfer reference to a
// closed sealed auction. Write-once; rejected while the auction is OPEN.
func (e *Engine) UpdateSettlementRef(ctx context.Context, auctionID, ref string) (*domain.Auction, error) {
	if e.sealed == nil {
		return nil, domain.Validationf("sealed-bid operations are not enabled for this deployment")
	}
	if ref == "" {
		return nil, domain.Validationf("settlement reference is required")
	}

	unlock := e.locks.Lock(auctionID)
	defer unlock()

	a, err := e.lookup(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AuctionClosed {
		return nil, domain.ErrAuctionNotClosed
	}
	if a.SettlementRef != "" {
		return nil, domain.ErrSettlementRefSet
	}

	a.SettlementRef = ref
	if _, err := e.records.UpdateAuction(ctx, a.ID, domain.AuctionUpdate{SettlementRef: &ref}); err != nil {
		return nil, err
	}
	e.cache.Put(ctx, a)
	return a, nil
}

func (e *Engine) lookup(ctx context.Context, auctionID string) (*domain.Auction, error) {
	if auctionID == "" {
		return nil, domain.Validationf("auction id is required")
	}
	if a, ok := e.cache.Get(ctx, auctionID); ok {
		return a, nil
	}
	a, err := e.records.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	e.cache.Put(ctx, a)
	return a, nil
}

func (e *Engine) now(ctx context.Context, _ *domain.Auction) (int64, error) {
	// Sealed deployments without an asset ledger fall back to local time;
	// open auctions are always judged by the ledger's clock.
	if e.assets == nil {
		return time.Now().Unix(), nil
	}
	return e.assets.CurrentTime(ctx)
}

func (e *Engine) publish(ctx context.Context, event *domain.AuctionEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishAuctionEvent(ctx, event); err != nil {
		e.log.Error("Failed to publish auction event", "type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}
