package db

import (
	"context"
	"fmt"

	"readhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoFreezeLedger is the append-only freeze transaction log. The ledger
// is authoritative; the cached availableFreezes on the report is a
// projection reconciled against Sum.
type MongoFreezeLedger struct{}

func NewFreezeLedger() *MongoFreezeLedger {
	return &MongoFreezeLedger{}
}

func (l *MongoFreezeLedger) collection() *mongo.Collection {
	return MongoDatabase.Collection("freeze_transactions")
}

// Append records one signed transaction
func (l *MongoFreezeLedger) Append(ctx context.Context, tx models.FreezeTransaction) error {
	if _, err := l.collection().InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("failed to append freeze transaction: %w", err)
	}
	return nil
}

// Sum returns the net freeze balance derived from the ledger
func (l *MongoFreezeLedger) Sum(ctx context.Context, userID primitive.ObjectID) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := l.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum freeze ledger: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode freeze ledger sum: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
