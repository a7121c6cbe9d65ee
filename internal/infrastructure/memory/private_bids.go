package memory

import (
	"context"
	"sync"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

// PrivateBidStore keeps sealed bids keyed by (auction, bidder). Resubmission
// overwrites. Visibility scoping is enforced by the engine: only ReadMyBid
// and the close tally ever reach this store.
type PrivateBidStore struct {
	mu   sync.RWMutex
	bids map[string]map[string]*domain.Bid // auctionID -> bidder -> bid
}

func NewPrivateBidStore() *PrivateBidStore {
	return &PrivateBidStore{bids: make(map[string]map[string]*domain.Bid)}
}

func (s *PrivateBidStore) PutBid(_ context.Context, b *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byBidder, ok := s.bids[b.AuctionID]
	if !ok {
		byBidder = make(map[string]*domain.Bid)
		s.bids[b.AuctionID] = byBidder
	}
	byBidder[b.Bidder] = b.Clone()
	return nil
}

func (s *PrivateBidStore) GetBid(_ context.Context, auctionID, bidder string) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bids[auctionID][bidder]
	if !ok {
		return nil, domain.ErrBidNotFound
	}
	return b.Clone(), nil
}

func (s *PrivateBidStore) BidsForAuction(_ context.Context, auctionID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byBidder := s.bids[auctionID]
	bids := make([]*domain.Bid, 0, len(byBidder))
	for _, b := range byBidder {
		bids = append(bids, b.Clone())
	}
	return bids, nil
}
