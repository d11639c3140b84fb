package types

import (
	"errors"
	"fmt"
)

// Trade error codes. Validation codes are surfaced before any mutation;
// BALANCE_DEDUCTION_FAILED indicates an invariant violation during debit.
const (
	ErrInvalidAmount          = "INVALID_AMOUNT"
	ErrInvalidPrice           = "INVALID_PRICE"
	ErrInsufficientBalance    = "INSUFFICIENT_BALANCE"
	ErrBalanceDeductionFailed = "BALANCE_DEDUCTION_FAILED"
	ErrMarketNotFound         = "MARKET_NOT_FOUND"
	ErrMarketClosed           = "MARKET_CLOSED"
	ErrOptionNotFound         = "OPTION_NOT_FOUND"
	ErrWalletNotConnected     = "WALLET_NOT_CONNECTED"
	ErrTradeInFlight          = "TRADE_IN_FLIGHT"
	ErrInsufficientShares     = "INSUFFICIENT_SHARES"
)

// TradeError represents an error that occurred while validating or settling
// a trade request.
type TradeError struct {
	Code     string // One of the Err* code constants
	Message  string // Human-readable error message
	MarketID string
	OptionID string
}

func (e *TradeError) Error() string {
	if e.MarketID != "" {
		return fmt.Sprintf("trade failed (market %s): %s (%s)", e.MarketID, e.Message, e.Code)
	}

	return fmt.Sprintf("trade failed: %s (%s)", e.Message, e.Code)
}

// NewTradeError builds a TradeError with the given code and message.
func NewTradeError(code, message string) *TradeError {
	return &TradeError{Code: code, Message: message}
}

// ErrorCode extracts the trade error code from err, or "" if err is not a
// TradeError.
func ErrorCode(err error) string {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
