// Package redis provides the shared cache, the auction event bus and leader
// election for multi-instance deployments.
package redis

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/config"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

const auctionKeyPrefix = "auction:"

// cachedAuction is the Redis serialization of an auction. Amounts are decimal
// strings.
type cachedAuction struct {
	ID            string `json:"id"`
	AssetID       string `json:"asset_id"`
	Creator       string `json:"creator"`
	StartTime     int64  `json:"start_time"`
	EndTime       int64  `json:"end_time"`
	MinBid        string `json:"min_bid"`
	CurrentBid    string `json:"current_bid"`
	HighestBidder string `json:"highest_bidder"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"created_at"`
	SettlementRef string `json:"settlement_ref"`
	Winner        string `json:"winner"`
	WinAmount     string `json:"win_amount"`
}

// AuctionCache is a best-effort shared cache: failures are logged and treated
// as misses, the record ledger stays authoritative.
type AuctionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewAuctionCache(client *redis.Client, log logger.Logger) *AuctionCache {
	return &AuctionCache{client: client, ttl: time.Hour, log: log}
}

func (c *AuctionCache) Get(ctx context.Context, auctionID string) (*domain.Auction, bool) {
	raw, err := c.client.Get(ctx, auctionKeyPrefix+auctionID).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Error("Cache read failed", "auction_id", auctionID, "error", err)
		return nil, false
	}

	var cached cachedAuction
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		c.log.Error("Cache entry corrupt", "auction_id", auctionID, "error", err)
		return nil, false
	}

	a, err := cached.toDomain()
	if err != nil {
		c.log.Error("Cache entry corrupt", "auction_id", auctionID, "error", err)
		return nil, false
	}
	return a, true
}

func (c *AuctionCache) Put(ctx context.Context, a *domain.Auction) {
	cached := cachedAuction{
		ID:            a.ID,
		AssetID:       a.AssetID,
		Creator:       a.Creator,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		MinBid:        bigString(a.MinBid),
		CurrentBid:    bigString(a.CurrentBid),
		HighestBidder: a.HighestBidder,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		SettlementRef: a.SettlementRef,
		Winner:        a.Winner,
		WinAmount:     bigString(a.WinAmount),
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		c.log.Error("Cache encode failed", "auction_id", a.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, auctionKeyPrefix+a.ID, raw, c.ttl).Err(); err != nil {
		c.log.Error("Cache write failed", "auction_id", a.ID, "error", err)
	}
}

func (c cachedAuction) toDomain() (*domain.Auction, error) {
	a := &domain.Auction{
		ID:            c.ID,
		AssetID:       c.AssetID,
		Creator:       c.Creator,
		StartTime:     c.StartTime,
		EndTime:       c.EndTime,
		HighestBidder: c.HighestBidder,
		Status:        domain.AuctionStatus(c.Status),
		CreatedAt:     c.CreatedAt,
		SettlementRef: c.SettlementRef,
		Winner:        c.Winner,
	}
	var err error
	if a.MinBid, err = parseBig(c.MinBid); err != nil {
		return nil, err
	}
	if a.CurrentBid, err = parseBig(c.CurrentBid); err != nil {
		return nil, err
	}
	if a.WinAmount, err = parseBig(c.WinAmount); err != nil {
		return nil, err
	}
	return a, nil
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errBadAmount(s)
	}
	return n, nil
}

type errBadAmount string

func (e errBadAmount) Error() string { return "bad cached amount: " + string(e) }
