package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
)

// GetStatusCode returns the HTTP status code for the given error.
func GetStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch err {
	case ErrBadParamInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// UnsupportedPoolTypeError is returned by the pool factory for pool-type tags
// outside the closed enum. The offending pool is dropped from candidate
// generation; the error is never fatal to a routing request.
type UnsupportedPoolTypeError struct {
	PoolID   string
	PoolType string
}

func (e UnsupportedPoolTypeError) Error() string {
	return fmt.Sprintf("unsupported pool type (%s) for pool (%s)", e.PoolType, e.PoolID)
}

// InvalidPoolPairError is returned when a requested token pair is not present
// in the pool the factory was asked to wrap.
type InvalidPoolPairError struct {
	PoolID   string
	TokenIn  string
	TokenOut string
}

func (e InvalidPoolPairError) Error() string {
	return fmt.Sprintf("pool (%s) does not contain pair (%s, %s)", e.PoolID, e.TokenIn, e.TokenOut)
}

// PoolDisabledError signals that a pool cannot be swapped against at the
// requested time (swaps paused or outside an LBP schedule).
type PoolDisabledError struct {
	PoolID string
}

func (e PoolDisabledError) Error() string {
	return fmt.Sprintf("pool (%s) has swaps disabled", e.PoolID)
}
