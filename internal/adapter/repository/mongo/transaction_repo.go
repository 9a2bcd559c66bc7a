package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

var _ usecase.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	coll *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{coll: db.Collection(transactionsCollection)}
}

// Create inserts the transaction document with its embedded entries.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	_, err := r.coll.InsertOne(ctx, txn)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateIdempotencyKey
	}

	return err
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByIdempotencyKey retrieves the transaction recorded under key.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	return r.findOne(ctx, bson.D{{Key: "idempotencyKey", Value: key}})
}

func (r *TransactionRepository) findOne(ctx context.Context, filter bson.D) (*domain.Transaction, error) {
	var txn domain.Transaction

	err := r.coll.FindOne(ctx, filter).Decode(&txn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return &txn, nil
}

// SumEntriesForAccount returns Σdebit − Σcredit over the account's entries.
func (r *TransactionRepository) SumEntriesForAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	cursor, err := r.coll.Aggregate(ctx, balancePipeline(accountID))
	if err != nil {
		return decimal.Zero, err
	}

	var results []struct {
		Balance bson.RawValue `bson:"balance"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return decimal.Zero, err
	}

	if len(results) == 0 {
		return decimal.Zero, nil
	}

	return rawToDecimal(results[0].Balance)
}

// ListByAccount lists transactions touching an account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	opts := pageOptions(limit, offset).SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.D{{Key: "entries.accountId", Value: accountID}}, opts)
	if err != nil {
		return nil, err
	}

	txns := []*domain.Transaction{}
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, err
	}

	return txns, nil
}

func balancePipeline(accountID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$entries"}},
		{{Key: "$match", Value: bson.D{{Key: "entries.accountId", Value: accountID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "balance", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$subtract", Value: bson.A{"$entries.debit", "$entries.credit"}},
			}}}},
		}}},
	}
}

// rawToDecimal converts the numeric type $sum chose into a decimal.
func rawToDecimal(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bson.TypeInt32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bson.TypeInt64:
		return decimal.NewFromInt(v.Int64()), nil
	case bson.TypeDouble:
		return decimal.NewFromFloat(v.Double()), nil
	case bson.TypeDecimal128:
		return decimal.NewFromString(v.Decimal128().String())
	default:
		return decimal.Zero, fmt.Errorf("%w: unexpected balance type %s", domain.ErrMalformedBalance, v.Type)
	}
}
