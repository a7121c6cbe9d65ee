// Package handlers exposes the auction engine over HTTP. Amounts cross the
// wire as decimal strings; timestamps are unix seconds.
package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/services"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

type AuctionHandler struct {
	engine *services.Engine
	log    logger.Logger
}

func NewAuctionHandler(engine *services.Engine, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{engine: engine, log: log}
}

type createAuctionRequest struct {
	AssetID   string `json:"asset_id"`
	Creator   string `json:"creator"`
	MinBid    string `json:"min_bid"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
}

type auctionResponse struct {
	ID            string `json:"id"`
	AssetID       string `json:"asset_id"`
	Creator       string `json:"creator"`
	StartTime     int64  `json:"start_time,omitempty"`
	EndTime       int64  `json:"end_time,omitempty"`
	MinBid        string `json:"min_bid"`
	CurrentBid    string `json:"current_bid"`
	HighestBidder string `json:"highest_bidder,omitempty"`
	Status        string `json:"status"`
	Winner        string `json:"winner,omitempty"`
	WinAmount     string `json:"win_amount,omitempty"`
	SettlementRef string `json:"settlement_ref,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	RecordRef     string `json:"record_ref,omitempty"`
}

type bidResponse struct {
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	RecordRef string `json:"record_ref,omitempty"`
}

type placeBidRequest struct {
	Bidder string `json:"bidder"`
	Amount string `json:"amount"`
}

type settlementRequest struct {
	SettlementRef string `json:"settlement_ref"`
}

type errorResponse struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Auction *auctionResponse `json:"auction,omitempty"`
}

func (h *AuctionHandler) Register(g *echo.Group) {
	g.POST("/auctions", h.CreateAuction)
	g.GET("/auctions/:id", h.GetAuction)
	g.POST("/auctions/:id/bids", h.PlaceBid)
	g.GET("/auctions/:id/bids", h.ListBids)
	g.GET("/auctions/:id/bids/:bidder", h.GetMyBid)
	g.POST("/auctions/:id/close", h.CloseAuction)
	g.PUT("/auctions/:id/settlement", h.UpdateSettlement)
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req createAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "invalid request body"})
	}

	minBid, err := parseAmount(req.MinBid)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "validation", Message: "min_bid must be a decimal integer"})
	}

	a, ref, err := h.engine.CreateAuction(c.Request().Context(), services.CreateAuctionRequest{
		AssetID:   req.AssetID,
		Creator:   req.Creator,
		MinBid:    minBid,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	resp := toAuctionResponse(a)
	resp.RecordRef = ref
	return c.JSON(http.StatusCreated, resp)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	a, err := h.engine.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(a))
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "invalid request body"})
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "validation", Message: "amount must be a decimal integer"})
	}

	result, err := h.engine.PlaceBid(c.Request().Context(), c.Param("id"), req.Bidder, amount)
	if err != nil {
		return h.writeError(c, err)
	}

	resp := bidResponse{
		AuctionID: result.Bid.AuctionID,
		Bidder:    result.Bid.Bidder,
		Amount:    result.Bid.Amount.String(),
		Timestamp: result.Bid.Timestamp,
		RecordRef: result.RecordRef,
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *AuctionHandler) ListBids(c echo.Context) error {
	bids, err := h.engine.GetAuctionBids(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	resp := make([]bidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, bidResponse{
			AuctionID: b.AuctionID,
			Bidder:    b.Bidder,
			Amount:    b.Amount.String(),
			Timestamp: b.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// IdentityHeader carries the authenticated caller identity, injected by the
// gateway that terminates authentication in front of this service.
const IdentityHeader = "X-Auction-Identity"

// GetMyBid returns the caller's own sealed bid. The bidder path segment
/// stands in for an authenticated identity: when the gateway supplies
// IdentityHeader it must match the path, otherwise any caller could read
// another party's sealed bid. Without the header the route trusts the
// network, so it must not be exposed unauthenticated; the on-ledger
// deployment scopes reads by client identity instead.
func (h *AuctionHandler) GetMyBid(c echo.Context) error {
	bidder := c.Param("bidder")
	if id := c.Request().Header.Get(IdentityHeader); id != "" && !strings.EqualFold(id, bidder) {
		return c.JSON(http.StatusForbidden, errorResponse{
			Code:    "forbidden",
			Message: "authenticated identity does not match requested bidder",
		})
	}

	b, err := h.engine.ReadMyBid(c.Request().Context(), c.Param("id"), bidder)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, bidResponse{
		AuctionID: b.AuctionID,
		Bidder:    b.Bidder,
		Amount:    b.Amount.String(),
		Timestamp: b.Timestamp,
	})
}

func (h *AuctionHandler) CloseAuction(c echo.Context) error {
	a, ref, err := h.engine.CloseAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		var partial *domain.PartialSettlementError
		if errors.As(err, &partial) {
			// The auction is closed; only the payment leg is outstanding.
			resp := toAuctionResponse(a)
			return c.JSON(http.StatusBadGateway, errorResponse{
				Code:    "partial_settlement",
				Message: err.Error(),
				Auction: &resp,
			})
		}
		return h.writeError(c, err)
	}

	resp := toAuctionResponse(a)
	resp.RecordRef = ref
	return c.JSON(http.StatusOK, resp)
}

func (h *AuctionHandler) UpdateSettlement(c echo.Context) error {
	var req settlementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "invalid request body"})
	}

	a, err := h.engine.UpdateSettlementRef(c.Request().Context(), c.Param("id"), req.SettlementRef)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(a))
}

func (h *AuctionHandler) writeError(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, "internal"

	switch domain.Kind(err) {
	case domain.KindValidation:
		status, code = http.StatusBadRequest, "validation"
	case domain.KindAuthorization:
		status, code = http.StatusForbidden, "forbidden"
	case domain.KindNotFound:
		status, code = http.StatusNotFound, "not_found"
	case domain.KindStateConflict:
		status, code = http.StatusConflict, "conflict"
	case domain.KindInsufficientFunds:
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case domain.KindPartialSettlement:
		status, code = http.StatusBadGateway, "partial_settlement"
	case domain.KindLedgerUnavailable:
		status, code = http.StatusServiceUnavailable, "ledger_unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, errorResponse{Code: code, Message: err.Error()})
}

func toAuctionResponse(a *domain.Auction) auctionResponse {
	resp := auctionResponse{
		ID:            a.ID,
		AssetID:       a.AssetID,
		Creator:       a.Creator,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		MinBid:        amountString(a.MinBid),
		CurrentBid:    amountString(a.CurrentBid),
		HighestBidder: a.HighestBidder,
		Status:        string(a.Status),
		Winner:        a.Winner,
		SettlementRef: a.SettlementRef,
		CreatedAt:     a.CreatedAt,
	}
	if a.WinAmount != nil && a.WinAmount.Sign() > 0 {
		resp.WinAmount = a.WinAmount.String()
	}
	return resp
}

func amountString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errEmptyAmount
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errEmptyAmount
	}
	return n, nil
}

var errEmptyAmount = errors.New("amount must be a decimal integer string")
