package repository

import "context"

// Store is the quota collaborator keyed by (userID, service).
// Implementations must make IncrementWithCeiling atomic so the stored count never exceeds limit.
type Store interface {
	// Count returns the recorded uses, 0 if the pair has no record yet.
	Count(ctx context.Context, userID, service string) (int, error)
	// IncrementWithCeiling adds one use unless the count has already reached limit.
	// It returns the count after the call and whether it was incremented.
	IncrementWithCeiling(ctx context.Context, userID, service string, limit int) (count int, incremented bool, err error)
}
