package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the transport layer can map them to
// status codes without string matching.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindStateConflict
	KindInsufficientFunds
	KindPartialSettlement
	KindLedgerUnavailable
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidNotFound     = errors.New("no bid recorded")

	ErrNotAssetOwner = errors.New("creator is not the owner of the asset")

	ErrAuctionNotOpen       = errors.New("auction is not open")
	ErrAuctionNotStarted    = errors.New("auction has not started yet")
	ErrAuctionEnded         = errors.New("auction has ended")
	ErrAuctionAlreadyClosed = errors.New("auction is already closed")
	ErrAuctionNotEnded      = errors.New("auction has not ended yet")
	ErrAuctionNotClosed     = errors.New("auction is not closed")
	ErrBidTooLow            = errors.New("bid amount too low")
	ErrSettlementRefSet     = errors.New("settlement reference already recorded")
	ErrNoValidBids          = errors.New("no valid bids")

	ErrInsufficientFunds = errors.New("insufficient token balance or allowance")
)

// ValidationError marks malformed or missing input. It is raised before any
// ledger call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// LedgerError wraps a failed call to one of the external ledgers.
type LedgerError struct {
	Ledger string // "asset" or "record"
	Op     string
	Err    error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s ledger: %s: %v", e.Ledger, e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// PartialSettlementError reports a close where the asset moved but the
// payment leg did not (the auction is nonetheless CLOSED). It requires
// manual reconciliation and must never be retried automatically.
type PartialSettlementError struct {
	AuctionID  string
	AssetTxRef string
	Err        error
}

func (e *PartialSettlementError) Error() string {
	return fmt.Sprintf("partial settlement for auction %s (asset tx %s): payment transfer failed: %v",
		e.AuctionID, e.AssetTxRef, e.Err)
}

func (e *PartialSettlementError) Unwrap() error { return e.Err }

// Kind classifies err into the taxonomy above.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var pse *PartialSettlementError
	if errors.As(err, &pse) {
		return KindPartialSettlement
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return KindLedgerUnavailable
	}

	switch {
	case errors.Is(err, ErrAuctionNotFound), errors.Is(err, ErrBidNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotAssetOwner):
		return KindAuthorization
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrAuctionNotOpen),
		errors.Is(err, ErrAuctionNotStarted),
		errors.Is(err, ErrAuctionEnded),
		errors.Is(err, ErrAuctionAlreadyClosed),
		errors.Is(err, ErrAuctionNotEnded),
		errors.Is(err, ErrAuctionNotClosed),
		errors.Is(err, ErrBidTooLow),
		errors.Is(err, ErrSettlementRefSet),
		errors.Is(err, ErrNoValidBids):
		return KindStateConflict
	}

	return KindInternal
}
