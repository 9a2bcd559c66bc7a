package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

var _ usecase.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	coll *mongo.Collection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{coll: db.Collection(transactionsCollection)}
}

type countFacet []struct {
	N int64 `bson:"n"`
}

func (c countFacet) value() int64 {
	if len(c) == 0 {
		return 0
	}
	return c[0].N
}

// CheckConsistency scans every transaction in one aggregation.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (domain.LedgerConsistency, error) {
	cursor, err := r.coll.Aggregate(ctx, consistencyPipeline())
	if err != nil {
		return domain.LedgerConsistency{}, err
	}

	var results []struct {
		Transactions countFacet `bson:"transactions"`
		Entries      countFacet `bson:"entries"`
		Unbalanced   countFacet `bson:"unbalanced"`
		Invalid      countFacet `bson:"invalid"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return domain.LedgerConsistency{}, err
	}

	if len(results) == 0 {
		return domain.LedgerConsistency{}, nil
	}

	res := results[0]

	return domain.LedgerConsistency{
		Transactions:        res.Transactions.value(),
		Entries:             res.Entries.value(),
		UnbalancedTransfers: res.Unbalanced.value(),
		InvalidEntries:      res.Invalid.value(),
	}, nil
}

func consistencyPipeline() mongo.Pipeline {
	count := bson.D{{Key: "$count", Value: "n"}}
	unwind := bson.D{{Key: "$unwind", Value: "$entries"}}

	oneSided := bson.D{{Key: "$eq", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$entries.debit", 0}}},
		bson.D{{Key: "$eq", Value: bson.A{"$entries.credit", 0}}},
	}}}

	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.D{
			{Key: "transactions", Value: bson.A{count}},
			{Key: "entries", Value: bson.A{unwind, count}},
			{Key: "unbalanced", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "kind", Value: string(domain.TransactionKindTransfer)}}}},
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$ne", Value: bson.A{
					bson.D{{Key: "$sum", Value: "$entries.debit"}},
					bson.D{{Key: "$sum", Value: "$entries.credit"}},
				}}}}}}},
				count,
			}},
			{Key: "invalid", Value: bson.A{
				unwind,
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$or", Value: bson.A{
					bson.D{{Key: "$lt", Value: bson.A{"$entries.debit", 0}}},
					bson.D{{Key: "$lt", Value: bson.A{"$entries.credit", 0}}},
					oneSided,
				}}}}}}},
				count,
			}},
		}}},
	}
}
