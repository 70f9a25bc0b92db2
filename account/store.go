package account

import "context"

type Store interface {
	GetOrCreate(ctx context.Context, userID string, seed Seed) (*Account, error)
	Get(ctx context.Context, userID string) (*Account, error)
	SetPlan(ctx context.Context, userID, planID string) error
}
