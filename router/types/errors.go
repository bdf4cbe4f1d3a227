package types

import "errors"

// Handler Errors
var (
	ErrTokenInNotSpecified  = errors.New("tokenIn is required")
	ErrTokenOutNotSpecified = errors.New("tokenOut is required")
	ErrTokenNotValid        = errors.New("token is invalid - must be a 0x-prefixed 20-byte hex address")
	ErrSameToken            = errors.New("tokenIn and tokenOut must differ")
	ErrAmountNotSpecified   = errors.New("amount is required")
	ErrAmountNotValid       = errors.New("amount is invalid - must be a positive integer")
	ErrSwapTypeNotValid     = errors.New("swapType is invalid - must be ExactIn or ExactOut")
	ErrGasPriceNotValid     = errors.New("gasPrice is invalid - must be a non-negative integer")
	ErrMaxPoolsNotValid     = errors.New("maxPools is invalid - must be a positive integer")
	ErrTimestampNotValid    = errors.New("timestamp is invalid - must be a unix timestamp in seconds")
	ErrPoolTypeNotValid     = errors.New("poolTypes contains an unrecognized pool family")
)
