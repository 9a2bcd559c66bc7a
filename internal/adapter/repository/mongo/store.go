// Package mongo stores accounts and transactions in MongoDB. Entries are
// embedded in their transaction document, so a transaction and its entries
// are written by a single atomic insert.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// index on idempotencyKey is what makes concurrent inserts with one key safe.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(transactionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idempotency_key_unique"),
		},
		{
			Keys:    bson.D{{Key: "entries.accountId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("entries_account_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}

	_, err = db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("created_at"),
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}

	return nil
}

func pageOptions(limit, offset int) *options.FindOptions {
	return options.Find().SetLimit(int64(limit)).SetSkip(int64(offset))
}
