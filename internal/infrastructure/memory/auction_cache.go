// Package memory provides the process-local backends: the read-through
// auction cache and the sealed-bid private store. Both start empty on
// restart and are rebuilt from the record ledger on demand.
package memory

import (
	"context"
	"sync"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

// AuctionCache is an unbounded map keyed by auction id. Entries are never
// evicted: auctions are finite and closing does not remove them. Clones are
// exchanged on both paths so readers never observe in-place mutation.
type AuctionCache struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewAuctionCache() *AuctionCache {
	return &AuctionCache{auctions: make(map[string]*domain.Auction)}
}

func (c *AuctionCache) Get(_ context.Context, auctionID string) (*domain.Auction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.auctions[auctionID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (c *AuctionCache) Put(_ context.Context, a *domain.Auction) {
	if a == nil || a.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.auctions[a.ID] = a.Clone()
}

// Len reports the number of cached auctions, for introspection endpoints.
func (c *AuctionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.auctions)
}
