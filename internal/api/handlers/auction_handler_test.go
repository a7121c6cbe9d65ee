package handlers

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/memory"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/services"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

// stubRecords is the minimal record ledger the sealed engine needs here.
type stubRecords struct {
	auctions map[string]*domain.Auction
}

func (s *stubRecords) CreateAuction(_ context.Context, a *domain.Auction) (string, error) {
	s.auctions[a.ID] = a.Clone()
	return "rec-" + a.ID, nil
}

func (s *stubRecords) UpdateAuction(_ context.Context, auctionID string, _ domain.AuctionUpdate) (string, error) {
	return "rec-upd-" + auctionID, nil
}

func (s *stubRecords) FinalizeAuction(_ context.Context, auctionID string, _ *big.Int, _, _ string) (string, error) {
	return "rec-final-" + auctionID, nil
}

func (s *stubRecords) GetAuction(_ context.Context, auctionID string) (*domain.Auction, error) {
	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return a.Clone(), nil
}

func (s *stubRecords) CreateBid(_ context.Context, b *domain.Bid) (string, error) {
	return "rec-bid-" + b.AuctionID, nil
}

func (s *stubRecords) BidsForAuction(context.Context, string) ([]*domain.Bid, error) {
	return nil, nil
}

func newSealedHandler(t *testing.T) (*AuctionHandler, string) {
	t.Helper()

	engine := services.NewSealedEngine(nil, &stubRecords{auctions: map[string]*domain.Auction{}},
		memory.NewAuctionCache(), memory.NewPrivateBidStore(),
		services.Limits{MinDuration: time.Hour, MaxDuration: 7 * 24 * time.Hour},
		logger.NewNop())

	a, _, err := engine.CreateAuction(context.Background(), services.CreateAuctionRequest{
		AssetID: "42",
		Creator: "curator-org",
		MinBid:  big.NewInt(500),
	})
	require.NoError(t, err)

	_, err = engine.PlaceBid(context.Background(), a.ID, "alice", big.NewInt(1500))
	require.NoError(t, err)

	return NewAuctionHandler(engine, logger.NewNop()), a.ID
}

func getMyBid(h *AuctionHandler, auctionID, bidder, identity string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if identity != "" {
		req.Header.Set(IdentityHeader, identity)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "bidder")
	c.SetParamValues(auctionID, bidder)
	_ = h.GetMyBid(c)
	return rec
}

func TestGetMyBidRejectsForeignIdentity(t *testing.T) {
	h, auctionID := newSealedHandler(t)

	rec := getMyBid(h, auctionID, "alice", "mallory")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "1500")
}

func TestGetMyBidAllowsOwnIdentity(t *testing.T) {
	h, auctionID := newSealedHandler(t)

	rec := getMyBid(h, auctionID, "alice", "alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1500")

	// Identity match is case-insensitive, like address comparison.
	rec = getMyBid(h, auctionID, "alice", strings.ToUpper("alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMyBidWithoutGatewayHeader(t *testing.T) {
	h, auctionID := newSealedHandler(t)

	// No header means the gateway did not inject an identity; the route
	// trusts the network in that deployment.
	rec := getMyBid(h, auctionID, "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
