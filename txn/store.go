package txn

import (
	"context"
	"time"
)

type Store interface {
	List(ctx context.Context, userID string, limit int) ([]*Transaction, error)
	DebitsSince(ctx context.Context, userID string, since time.Time) (int64, error)
}
