package db

import (
	"context"
	"fmt"
	"time"

	"readhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCompletionStore persists DailyCompletion rows keyed by (userId, date)
type MongoCompletionStore struct{}

func NewCompletionStore() *MongoCompletionStore {
	return &MongoCompletionStore{}
}

func (s *MongoCompletionStore) collection() *mongo.Collection {
	return MongoDatabase.Collection("daily_completions")
}

// Get loads one day's row, or ErrCompletionNotFound
func (s *MongoCompletionStore) Get(ctx context.Context, userID primitive.ObjectID, date string) (*models.DailyCompletion, error) {
	var completion models.DailyCompletion
	err := s.collection().FindOne(ctx, bson.M{"userId": userID, "date": date}).Decode(&completion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrCompletionNotFound
		}
		return nil, fmt.Errorf("failed to load daily completion: %w", err)
	}
	return &completion, nil
}

// Upsert writes a day's row keyed by (userId, date)
func (s *MongoCompletionStore) Upsert(ctx context.Context, completion *models.DailyCompletion) error {
	completion.UpdatedAt = time.Now()
	if completion.CreatedAt.IsZero() {
		completion.CreatedAt = completion.UpdatedAt
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"userId": completion.UserID, "date": completion.Date}
	_, err := s.collection().ReplaceOne(ctx, filter, completion, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert daily completion: %w", err)
	}
	return nil
}

// Range returns rows with from <= date <= to, ordered by date ascending
func (s *MongoCompletionStore) Range(ctx context.Context, userID primitive.ObjectID, from, to string) ([]models.DailyCompletion, error) {
	filter := bson.M{
		"userId": userID,
		"date":   bson.M{"$gte": from, "$lte": to},
	}
	return s.find(ctx, filter)
}

// All returns the user's full completion history, ordered by date ascending
func (s *MongoCompletionStore) All(ctx context.Context, userID primitive.ObjectID) ([]models.DailyCompletion, error) {
	return s.find(ctx, bson.M{"userId": userID})
}

func (s *MongoCompletionStore) find(ctx context.Context, filter bson.M) ([]models.DailyCompletion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily completions: %w", err)
	}
	defer cursor.Close(ctx)

	var completions []models.DailyCompletion
	if err := cursor.All(ctx, &completions); err != nil {
		return nil, fmt.Errorf("failed to decode daily completions: %w", err)
	}
	return completions, nil
}
