package domain

type AuctionEventType string

const (
	EventAuctionCreated AuctionEventType = "auction_created"
	EventBidAccepted    AuctionEventType = "bid_accepted"
	EventAuctionClosed  AuctionEventType = "auction_closed"
)

// AuctionEvent is the wire form published on the auction_events channel.
// Amount is a decimal string so arbitrary-precision values survive JSON.
type AuctionEvent struct {
	Type      AuctionEventType `json:"type"`
	AuctionID string           `json:"auction_id"`
	Bidder    string           `json:"bidder,omitempty"`
	Amount    string           `json:"amount,omitempty"`
	Winner    string           `json:"winner,omitempty"`
	Timestamp int64            `json:"timestamp"`
}
