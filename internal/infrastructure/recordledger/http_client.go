// Package recordledger talks to the record ledger HTTP gateway. Auctions are
// CREATE transactions whose immutable fields live in asset data and whose
// mutable fields live in metadata; every state change appends a TRANSFER
// transaction carrying fresh metadata. Bids are standalone CREATE
// transactions referencing the auction.
package recordledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/config"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

type HTTPClient struct {
	baseURL string
	appID   string
	appKey  string
	http    *http.Client
	log     logger.Logger
}

func NewHTTPClient(cfg config.RecordLedgerConfig, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.APIURL,
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// Wire representations. Amounts travel as decimal strings so the gateway
// never sees floats.

type assetPayload struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
	AssetID   string `json:"asset_id,omitempty"`
	Creator   string `json:"creator,omitempty"`
	StartTime int64  `json:"start_time,omitempty"`
	EndTime   int64  `json:"end_time,omitempty"`
	MinBid    string `json:"min_bid,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Bidder    string `json:"bidder,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type metadataPayload struct {
	Status        string `json:"status,omitempty"`
	CurrentBid    string `json:"current_bid,omitempty"`
	HighestBidder string `json:"highest_bidder,omitempty"`
	FinalPrice    string `json:"final_price,omitempty"`
	Winner        string `json:"winner,omitempty"`
	WinAmount     string `json:"win_amount,omitempty"`
	SettlementRef string `json:"settlement_ref,omitempty"`
	UpdatedAt     int64  `json:"updated_at,omitempty"`
}

type transactionRequest struct {
	Operation string           `json:"operation"`
	Asset     *assetPayload    `json:"asset,omitempty"`
	Metadata  *metadataPayload `json:"metadata,omitempty"`
}

type transactionResponse struct {
	ID string `json:"id"`
}

type auctionResponse struct {
	Asset    assetPayload    `json:"asset"`
	Metadata metadataPayload `json:"metadata"`
}

type bidsResponse struct {
	Bids []assetPayload `json:"bids"`
}

func (c *HTTPClient) CreateAuction(ctx context.Context, a *domain.Auction) (string, error) {
	req := transactionRequest{
		Operation: "CREATE",
		Asset: &assetPayload{
			Type:      "auction",
			AuctionID: a.ID,
			AssetID:   a.AssetID,
			Creator:   a.Creator,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			MinBid:    bigString(a.MinBid),
			CreatedAt: a.CreatedAt,
		},
		Metadata: &metadataPayload{
			Status:    string(a.Status),
			UpdatedAt: a.CreatedAt,
		},
	}
	var resp transactionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", req, &resp); err != nil {
		return "", wrap("createAuction", err)
	}
	return resp.ID, nil
}

func (c *HTTPClient) UpdateAuction(ctx context.Context, auctionID string, upd domain.AuctionUpdate) (string, error) {
	meta := &metadataPayload{UpdatedAt: time.Now().Unix()}
	if upd.CurrentBid != nil {
		meta.CurrentBid = upd.CurrentBid.String()
	}
	if upd.HighestBidder != nil {
		meta.HighestBidder = *upd.HighestBidder
	}
	if upd.Status != nil {
		meta.Status = string(*upd.Status)
	}
	if upd.SettlementRef != nil {
		meta.SettlementRef = *upd.SettlementRef
	}
	if upd.Winner != nil {
		meta.Winner = *upd.Winner
	}
	if upd.WinAmount != nil {
		meta.WinAmount = upd.WinAmount.String()
	}

	req := transactionRequest{Operation: "TRANSFER", Metadata: meta}
	var resp transactionResponse
	path := fmt.Sprintf("/api/v1/auctions/%s/transactions", auctionID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", wrap("updateAuction", err)
	}
	return resp.ID, nil
}

func (c *HTTPClient) FinalizeAuction(ctx context.Context, auctionID string, finalPrice *big.Int, winner, settlementRef string) (string, error) {
	req := transactionRequest{
		Operation: "TRANSFER",
		Metadata: &metadataPayload{
			Status:        string(domain.AuctionClosed),
			FinalPrice:    bigString(finalPrice),
			Winner:        winner,
			SettlementRef: settlementRef,
			UpdatedAt:     time.Now().Unix(),
		},
	}
	var resp transactionResponse
	path := fmt.Sprintf("/api/v1/auctions/%s/transactions", auctionID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", wrap("finalizeAuction", err)
	}
	c.log.Info("Auction finalized on record ledger", "auction_id", auctionID, "tx", resp.ID)
	return resp.ID, nil
}

func (c *HTTPClient) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	var resp auctionResponse
	path := fmt.Sprintf("/api/v1/auctions/%s", auctionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if err == errNotFound {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, wrap("getAuction", err)
	}

	a := &domain.Auction{
		ID:            resp.Asset.AuctionID,
		AssetID:       resp.Asset.AssetID,
		Creator:       resp.Asset.Creator,
		StartTime:     resp.Asset.StartTime,
		EndTime:       resp.Asset.EndTime,
		CreatedAt:     resp.Asset.CreatedAt,
		HighestBidder: resp.Metadata.HighestBidder,
		Status:        domain.AuctionStatus(resp.Metadata.Status),
		SettlementRef: resp.Metadata.SettlementRef,
		Winner:        resp.Metadata.Winner,
	}
	var err error
	if a.MinBid, err = parseBig("min_bid", resp.Asset.MinBid); err != nil {
		return nil, wrap("getAuction", err)
	}
	if a.CurrentBid, err = parseBig("current_bid", resp.Metadata.CurrentBid); err != nil {
		return nil, wrap("getAuction", err)
	}
	if a.WinAmount, err = parseBig("win_amount", resp.Metadata.WinAmount); err != nil {
		return nil, wrap("getAuction", err)
	}
	return a, nil
}

func (c *HTTPClient) CreateBid(ctx context.Context, b *domain.Bid) (string, error) {
	req := transactionRequest{
		Operation: "CREATE",
		Asset: &assetPayload{
			Type:      "bid",
			AuctionID: b.AuctionID,
			Bidder:    b.Bidder,
			Amount:    bigString(b.Amount),
			Timestamp: b.Timestamp,
		},
	}
	var resp transactionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", req, &resp); err != nil {
		return "", wrap("createBid", err)
	}
	return resp.ID, nil
}

func (c *HTTPClient) BidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	var resp bidsResponse
	path := fmt.Sprintf("/api/v1/auctions/%s/bids", auctionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if err == errNotFound {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, wrap("bidsForAuction", err)
	}

	bids := make([]*domain.Bid, 0, len(resp.Bids))
	for _, raw := range resp.Bids {
		amount, err := parseBig("amount", raw.Amount)
		if err != nil {
			return nil, wrap("bidsForAuction", err)
		}
		bids = append(bids, &domain.Bid{
			AuctionID: raw.AuctionID,
			Bidder:    raw.Bidder,
			Amount:    amount,
			Timestamp: raw.Timestamp,
		})
	}
	return bids, nil
}

var errNotFound = fmt.Errorf("record not found")

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("app_id", c.appID)
	req.Header.Set("app_key", c.appKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseBig(field, s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("field %s: %q is not a decimal integer", field, s)
	}
	return n, nil
}

func wrap(op string, err error) error {
	return &domain.LedgerError{Ledger: "record", Op: op, Err: err}
}
