// Package errs provides the error types the node API returns to callers.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context. The message of a trusted error
// is safe to show to the caller.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// Ledger maps the rejections produced by the ledger onto trusted errors so
// the caller learns why the request was refused. Any other error is
// returned as is.
func Ledger(err error) error {
	switch {
	case err == nil:
		return nil

	case errors.Is(err, state.ErrSelfTransfer),
		errors.Is(err, state.ErrInsufficientFunds),
		errors.Is(err, database.ErrInvalidAmount),
		errors.Is(err, database.ErrInvalidSignature):
		return NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, state.ErrGenesisExists):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, state.ErrNoCandidate),
		errors.Is(err, database.ErrChainEmpty):
		return NewTrusted(err, http.StatusUnprocessableEntity)

	case errors.Is(err, pow.ErrCancelled):
		return NewTrusted(err, http.StatusAccepted)
	}

	return err
}
