package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

var _ usecase.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	txns   *mongo.Collection
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		client: db.Client(),
		coll:   db.Collection(accountsCollection),
		txns:   db.Collection(transactionsCollection),
	}
}

// Create creates a new account. An opening transaction is inserted in the
// same multi-document transaction, which needs a replica set deployment.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account, opening *domain.Transaction) error {
	if opening == nil {
		_, err := r.coll.InsertOne(ctx, account)
		return err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if _, err := r.coll.InsertOne(sc, account); err != nil {
			return nil, err
		}

		_, err := r.txns.InsertOne(sc, opening)
		return nil, err
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateIdempotencyKey
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account

	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return &account, nil
}

// UpdateReadonlyBalance overwrites the cached balance of an account.
func (r *AccountRepository) UpdateReadonlyBalance(ctx context.Context, id string, balance int64, updatedAt time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "readonlyBalance", Value: balance},
			{Key: "updatedAt", Value: updatedAt},
		}}},
	)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List lists accounts with pagination, oldest first.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	opts := pageOptions(limit, offset).SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	accounts := []*domain.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}

	return accounts, nil
}
