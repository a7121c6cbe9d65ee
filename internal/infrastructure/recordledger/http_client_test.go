package recordledger

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/config"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

func newTestClient(handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewHTTPClient(config.RecordLedgerConfig{
		APIURL: srv.URL,
		AppID:  "test-app",
		AppKey: "test-key",
	}, logger.NewNop())
	return client, srv
}

func TestCreateAuctionSendsCreateTransaction(t *testing.T) {
	var got transactionRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "test-app", r.Header.Get("app_id"))
		assert.Equal(t, "test-key", r.Header.Get("app_key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-1"})
	})
	defer srv.Close()

	ref, err := client.CreateAuction(context.Background(), &domain.Auction{
		ID:        "a1",
		AssetID:   "42",
		Creator:   "0xCreator",
		EndTime:   2000,
		MinBid:    big.NewInt(1000),
		Status:    domain.AuctionOpen,
		CreatedAt: 900,
	})

	require.NoError(t, err)
	assert.Equal(t, "tx-1", ref)
	assert.Equal(t, "CREATE", got.Operation)
	require.NotNil(t, got.Asset)
	assert.Equal(t, "auction", got.Asset.Type)
	assert.Equal(t, "1000", got.Asset.MinBid)
	assert.EqualValues(t, 900, got.Asset.CreatedAt)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "OPEN", got.Metadata.Status)
}

func TestGetAuctionRoundTrip(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auctions/a1", r.URL.Path)
		json.NewEncoder(w).Encode(auctionResponse{
			Asset: assetPayload{
				AuctionID: "a1",
				AssetID:   "42",
				Creator:   "0xCreator",
				StartTime: 1000,
				EndTime:   2000,
				MinBid:    "1000",
				CreatedAt: 900,
			},
			Metadata: metadataPayload{
				Status:        "OPEN",
				CurrentBid:    "1500",
				HighestBidder: "0xBidder1",
			},
		})
	})
	defer srv.Close()

	a, err := client.GetAuction(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, "1500", a.CurrentBid.String())
	assert.Equal(t, "0xBidder1", a.HighestBidder)
	assert.Equal(t, domain.AuctionOpen, a.Status)
	// A rebuild after cache loss keeps the original creation time.
	assert.EqualValues(t, 900, a.CreatedAt)
}

func TestGetAuctionNotFound(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	_, err := client.GetAuction(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestGatewayErrorsClassifyAsLedgerFailure(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.GetAuction(context.Background(), "a1")
	require.Error(t, err)
	assert.Equal(t, domain.KindLedgerUnavailable, domain.Kind(err))

	_, err = client.CreateBid(context.Background(), &domain.Bid{
		AuctionID: "a1", Bidder: "0xBidder1", Amount: big.NewInt(1500),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindLedgerUnavailable, domain.Kind(err))
}

func TestUpdateAuctionOnlySendsChangedFields(t *testing.T) {
	var got transactionRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auctions/a1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(transactionResponse{ID: "tx-2"})
	})
	defer srv.Close()

	bidder := "0xBidder1"
	_, err := client.UpdateAuction(context.Background(), "a1", domain.AuctionUpdate{
		CurrentBid:    big.NewInt(1500),
		HighestBidder: &bidder,
	})

	require.NoError(t, err)
	assert.Equal(t, "TRANSFER", got.Operation)
	assert.Equal(t, "1500", got.Metadata.CurrentBid)
	assert.Equal(t, "0xBidder1", got.Metadata.HighestBidder)
	assert.Empty(t, got.Metadata.Status)
	assert.Empty(t, got.Metadata.SettlementRef)
}
