package port

import "context"

type CacheRepository interface {
	// SetIdempotency reserves a key, returns false if it already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// CompleteIdempotency records the sale created under a reserved key
	CompleteIdempotency(ctx context.Context, key string, saleID int64) error

	// GetIdempotentResult returns the sale id stored for key, found is false while still pending
	GetIdempotentResult(ctx context.Context, key string) (saleID int64, found bool, err error)

	// ReleaseIdempotency drops a reservation so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
