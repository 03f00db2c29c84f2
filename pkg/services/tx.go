package services

import (
	"context"
	"time"

	"github.com/greensdlc/sustainability-dashboard/pkg/database"
)

// TxRunner runs fn inside a transaction on the request's connection scope.
// Production code uses database.RunInTx; unit tests pass a runner that just calls fn.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// DefaultTxRunner is the transaction runner backed by the request scope.
var DefaultTxRunner TxRunner = database.RunInTx

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// UTCClock reports the wall clock in UTC.
func UTCClock() time.Time {
	return time.Now().UTC()
}
