// Package mongo implements the wallet store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/txn"
)

// Collection name constants.
const (
	colAccounts     = "wallet_accounts"
	colTransactions = "wallet_transactions"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB. Balance mutations are
// conditional single-document updates: the update filter re-asserts the
// value just read, so a lost race modifies zero documents and surfaces
// as wallet.ErrConflict. The conditional account update is the
// linearization point; the log row is appended once it has committed.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and selects the database.
func Open(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: connect: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Migrate creates the indexes for the transaction log.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(colTransactions).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("wallet/mongo: %w: %v", wallet.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", wallet.ErrStoreUnavailable, err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Account methods ====================

func (s *Store) GetOrCreateAccount(ctx context.Context, userID string, seed account.Seed) (*account.Account, error) {
	now := time.Now().UTC()
	_, err := s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": accountDoc{
			UserID:      userID,
			AccountID:   id.NewAccountID().String(),
			Plan:        seed.Plan,
			LastResetAt: seed.LastResetAt.UTC(),
			NextResetAt: seed.NextResetAt.UTC(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: create account: %w", err)
	}
	return s.GetAccount(ctx, userID)
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	var d accountDoc
	err := s.db.Collection(colAccounts).FindOne(ctx, bson.M{"_id": userID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wallet.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: get account: %w", err)
	}
	return fromAccountDoc(&d)
}

func (s *Store) SetAccountPlan(ctx context.Context, userID, planID string) error {
	res, err := s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"plan": planID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("wallet/mongo: set plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return wallet.ErrAccountNotFound
	}
	return nil
}

// ==================== Mutation primitives ====================

func (s *Store) Apply(ctx context.Context, in store.Apply) (*txn.Transaction, error) {
	var d accountDoc
	err := s.db.Collection(colAccounts).FindOne(ctx, bson.M{"_id": in.UserID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wallet.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: read account: %w", err)
	}

	newBalance := d.BalanceCents + in.Delta
	if newBalance < 0 {
		return nil, wallet.ErrInsufficientFunds
	}

	// Conditional on the balance just read.
	res, err := s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": in.UserID, "balance_cents": d.BalanceCents},
		bson.M{"$set": bson.M{"balance_cents": newBalance, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: update balance: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, &wallet.ConflictError{UserID: in.UserID, Op: "apply"}
	}

	return s.appendRow(ctx, in.UserID, in.Delta, newBalance, in.Reason, in.ActionType)
}

func (s *Store) ResetPeriod(ctx context.Context, in store.Reset) (*txn.Transaction, error) {
	var d accountDoc
	err := s.db.Collection(colAccounts).FindOne(ctx, bson.M{"_id": in.UserID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wallet.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: read account: %w", err)
	}

	// Update only if next_reset_at still equals the value the caller
	// read; a racing resetter already advanced it and we must no-op.
	res, err := s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": in.UserID, "next_reset_at": in.ExpectedNextReset.UTC()},
		bson.M{"$set": bson.M{
			"balance_cents": in.NewBalance,
			"last_reset_at": in.LastResetAt.UTC(),
			"next_reset_at": in.NextResetAt.UTC(),
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: reset period: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, &wallet.ConflictError{UserID: in.UserID, Op: "reset"}
	}

	return s.appendRow(ctx, in.UserID, in.NewBalance-d.BalanceCents, in.NewBalance, txn.ReasonPeriodReset, "")
}

func (s *Store) appendRow(ctx context.Context, userID string, delta, balanceAfter int64, reason, actionType string) (*txn.Transaction, error) {
	kind, amount := txn.FromDelta(delta)
	row := &txn.Transaction{
		ID:           id.NewTransactionID(),
		UserID:       userID,
		Type:         kind,
		AmountCents:  amount,
		BalanceAfter: balanceAfter,
		Reason:       reason,
		ActionType:   actionType,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.db.Collection(colTransactions).InsertOne(ctx, toTxnDoc(row)); err != nil {
		return nil, fmt.Errorf("wallet/mongo: append transaction: %w", err)
	}
	return row, nil
}

// ==================== Transaction log methods ====================

func (s *Store) Transactions(ctx context.Context, userID string, limit int) ([]*txn.Transaction, error) {
	cur, err := s.db.Collection(colTransactions).Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("wallet/mongo: list transactions: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck // read-only cursor

	var result []*txn.Transaction
	for cur.Next(ctx) {
		var d txnDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("wallet/mongo: decode transaction: %w", err)
		}
		t, err := fromTxnDoc(&d)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, cur.Err()
}

func (s *Store) DebitsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	cur, err := s.db.Collection(colTransactions).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    userID,
			"type":       string(txn.TypeDebit),
			"reason":     string(txn.ReasonSpend),
			"created_at": bson.M{"$gte": since.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount_cents"},
		}}},
	})
	if err != nil {
		return 0, fmt.Errorf("wallet/mongo: sum debits: %w", err)
	}
	defer cur.Close(ctx) //nolint:errcheck // read-only cursor

	var out struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&out); err != nil {
			return 0, fmt.Errorf("wallet/mongo: decode sum: %w", err)
		}
	}
	return out.Total, cur.Err()
}
