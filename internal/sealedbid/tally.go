// Package sealedbid holds the sealed-bid close tally and its on-ledger
// deployment as a Fabric contract. Bids are invisible to other parties until
// close; the tally is the only reveal path.
package sealedbid

import (
	"math/big"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
)

// SelectWinner picks the winning bid from the private set revealed at close.
//
// A strictly greater amount replaces the leader. Equal amounts resolve to the
// earlier timestamp, so the outcome does not depend on iteration order.
// Returns ErrNoValidBids when the set is empty or the best bid is below the
// reserve; the caller must leave the auction OPEN in that case.
func SelectWinner(bids []*domain.Bid, reserve *big.Int) (*domain.Bid, error) {
	var leader *domain.Bid
	for _, b := range bids {
		if b == nil || b.Amount == nil {
			continue
		}
		if leader == nil {
			leader = b
			continue
		}
		switch b.Amount.Cmp(leader.Amount) {
		case 1:
			leader = b
		case 0:
			if b.Timestamp < leader.Timestamp {
				leader = b
			}
		}
	}

	if leader == nil {
		return nil, domain.ErrNoValidBids
	}
	if reserve != nil && leader.Amount.Cmp(reserve) < 0 {
		return nil, domain.ErrNoValidBids
	}
	return leader, nil
}
