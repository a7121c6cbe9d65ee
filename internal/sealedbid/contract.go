package sealedbid

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

// BidCollection is the private data collection holding sealed bids. Its
// policy must admit every bidding org while keeping reads member-scoped.
const BidCollection = "collectionBids"

// Contract runs the sealed-bid variant inside a permissioned ledger. The
// public auction record lives in world state; bids live in BidCollection and
// are revealed only through CloseAuction's tally.
type Contract struct {
	contractapi.Contract
}

type auctionState struct {
	AuctionID     string `json:"auctionId"`
	AssetID       string `json:"assetId"`
	Curator       string `json:"curator"`
	Status        string `json:"status"`
	Reserve       string `json:"reserve"`
	Winner        string `json:"winner,omitempty"`
	WinAmount     string `json:"winAmount,omitempty"`
	SettlementRef string `json:"settlementRef,omitempty"`
}

type bidState struct {
	AuctionID string `json:"auctionId"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func auctionKey(auctionID string) string {
	return "auction:" + auctionID
}

func bidKey(auctionID, bidder string) string {
	return fmt.Sprintf("bid:%s:%s", auctionID, bidder)
}

// bidRange brackets every bid key for one auction: ':'+1 == ';' in ASCII.
func bidRange(auctionID string) (string, string) {
	return "bid:" + auctionID + ":", "bid:" + auctionID + ";"
}

func (c *Contract) readAuction(ctx contractapi.TransactionContextInterface, auctionID string) (*auctionState, error) {
	data, err := ctx.GetStub().GetState(auctionKey(auctionID))
	if err != nil {
		return nil, fmt.Errorf("reading auction %s: %w", auctionID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("auction %s not found", auctionID)
	}
	var a auctionState
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding auction %s: %w", auctionID, err)
	}
	return &a, nil
}

func (c *Contract) putAuction(ctx contractapi.TransactionContextInterface, a *auctionState) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(auctionKey(a.AuctionID), data)
}

// CreateAuction records a new sealed-bid auction with the submitting org's
// MSP as curator. The reserve is a decimal big-integer string.
func (c *Contract) CreateAuction(ctx contractapi.TransactionContextInterface, auctionID, assetID, reserve string) error {
	existing, err := ctx.GetStub().GetState(auctionKey(auctionID))
	if err != nil {
		return fmt.Errorf("checking auction %s: %w", auctionID, err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("auction %s already exists", auctionID)
	}

	if _, ok := new(big.Int).SetString(reserve, 10); !ok {
		return fmt.Errorf("invalid reserve amount %q", reserve)
	}

	curator, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return fmt.Errorf("resolving curator identity: %w", err)
	}

	return c.putAuction(ctx, &auctionState{
		AuctionID: auctionID,
		AssetID:   assetID,
		Curator:   curator,
		Status:    string(domain.AuctionOpen),
		Reserve:   reserve,
	})
}

// PlaceBid writes the caller's sealed bid into the private collection.
// Resubmitting overwrites the caller's previous bid; nobody else can read it
// before close.
func (c *Contract) PlaceBid(ctx contractapi.TransactionContextInterface, auctionID, amount string) error {
	a, err := c.readAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Status != string(domain.AuctionOpen) {
		return fmt.Errorf("auction %s is not open", auctionID)
	}

	amt, ok := new(big.Int).SetString(amount, 10)
	if !ok || amt.Sign() < 0 {
		return fmt.Errorf("invalid bid amount %q", amount)
	}

	bidder, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return fmt.Errorf("resolving bidder identity: %w", err)
	}

	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return fmt.Errorf("reading tx timestamp: %w", err)
	}

	data, err := json.Marshal(&bidState{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amt.String(),
		Timestamp: ts.Seconds,
	})
	if err != nil {
		return err
	}

	return ctx.GetStub().PutPrivateData(BidCollection, bidKey(auctionID, bidder), data)
}

// CloseResult is the reveal emitted by CloseAuction.
type CloseResult struct {
	Winner string `json:"winner"`
	Amount string `json:"amount"`
}

// CloseAuction tallies the private bids and, when the best bid meets the
// reserve, closes the auction and reveals the winner. With no valid bids the
// state is untouched and the auction stays OPEN.
func (c *Contract) CloseAuction(ctx contractapi.TransactionContextInterface, auctionID string) (*CloseResult, error) {
	a, err := c.readAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != string(domain.AuctionOpen) {
		return nil, fmt.Errorf("auction %s is already closed", auctionID)
	}

	start, end := bidRange(auctionID)
	iter, err := ctx.GetStub().GetPrivateDataByRange(BidCollection, start, end)
	if err != nil {
		return nil, fmt.Errorf("scanning bids for auction %s: %w", auctionID, err)
	}
	defer iter.Close()

	var bids []*domain.Bid
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterating bids for auction %s: %w", auctionID, err)
		}
		var b bidState
		if err := json.Unmarshal(kv.Value, &b); err != nil {
			return nil, fmt.Errorf("decoding bid %s: %w", kv.Key, err)
		}
		amt, ok := new(big.Int).SetString(b.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt bid amount in %s", kv.Key)
		}
		bids = append(bids, &domain.Bid{
			AuctionID: b.AuctionID,
			Bidder:    b.Bidder,
			Amount:    amt,
			Timestamp: b.Timestamp,
		})
	}

	reserve, _ := new(big.Int).SetString(a.Reserve, 10)
	winner, err := SelectWinner(bids, reserve)
	if err != nil {
		return nil, err
	}

	a.Status = string(domain.AuctionClosed)
	a.Winner = winner.Bidder
	a.WinAmount = winner.Amount.String()
	if err := c.putAuction(ctx, a); err != nil {
		return nil, fmt.Errorf("closing auction %s: %w", auctionID, err)
	}

	return &CloseResult{Winner: winner.Bidder, Amount: winner.Amount.String()}, nil
}

// UpdateSettlementRef attaches the out-of-band value-transfer reference once
// the cross-ledger settlement completed. Rejected unless the auction is
// CLOSED, and the reference is write-once.
func (c *Contract) UpdateSettlementRef(ctx contractapi.TransactionContextInterface, auctionID, txRef string) error {
	a, err := c.readAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Status != string(domain.AuctionClosed) {
		return fmt.Errorf("auction %s is not closed", auctionID)
	}
	if a.SettlementRef != "" {
		return fmt.Errorf("auction %s already has a settlement reference", auctionID)
	}
	a.SettlementRef = txRef
	return c.putAuction(ctx, a)
}

// ReadAuction returns the public auction record. Any member may call it;
// bids are never included.
func (c *Contract) ReadAuction(ctx contractapi.TransactionContextInterface, auctionID string) (string, error) {
	a, err := c.readAuction(ctx, auctionID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadMyBid returns the caller's own sealed bid, and nothing else: there is
// no cross-auction enumeration of a member's bids.
func (c *Contract) ReadMyBid(ctx contractapi.TransactionContextInterface, auctionID string) (string, error) {
	bidder, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("resolving bidder identity: %w", err)
	}
	data, err := ctx.GetStub().GetPrivateData(BidCollection, bidKey(auctionID, bidder))
	if err != nil {
		return "", fmt.Errorf("reading bid: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no bid recorded for auction %s", auctionID)
	}
	return string(data), nil
}
