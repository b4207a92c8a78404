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

// MongoReportStore persists UserStudyReport aggregates in the
// study_reports collection, one document per user.
type MongoReportStore struct{}

func NewReportStore() *MongoReportStore {
	return &MongoReportStore{}
}

func (s *MongoReportStore) collection() *mongo.Collection {
	return MongoDatabase.Collection("study_reports")
}

// Get loads the report for a user, or ErrReportNotFound
func (s *MongoReportStore) Get(ctx context.Context, userID primitive.ObjectID) (*models.UserStudyReport, error) {
	var report models.UserStudyReport
	err := s.collection().FindOne(ctx, bson.M{"userId": userID}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load study report: %w", err)
	}
	return &report, nil
}

// Save upserts the report keyed by userId
func (s *MongoReportStore) Save(ctx context.Context, report *models.UserStudyReport) error {
	report.UpdatedAt = time.Now()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = report.UpdatedAt
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.collection().ReplaceOne(ctx, bson.M{"userId": report.UserID}, report, opts)
	if err != nil {
		return fmt.Errorf("failed to save study report: %w", err)
	}
	return nil
}

// ListActive returns all reports with a live streak, for the daily batch
func (s *MongoReportStore) ListActive(ctx context.Context) ([]models.UserStudyReport, error) {
	cursor, err := s.collection().Find(ctx, bson.M{"currentStreak": bson.M{"$gt": 0}})
	if err != nil {
		return nil, fmt.Errorf("failed to list active reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.UserStudyReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode active reports: %w", err)
	}
	return reports, nil
}

// ListAll returns every report, for the periodic study-hour recompute
func (s *MongoReportStore) ListAll(ctx context.Context) ([]models.UserStudyReport, error) {
	cursor, err := s.collection().Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.UserStudyReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, nil
}

// TopByCurrentStreak returns the streak leaderboard, longest current streaks first
func (s *MongoReportStore) TopByCurrentStreak(ctx context.Context, limit int64) ([]models.UserStudyReport, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "currentStreak", Value: -1},
		{Key: "longestStreak", Value: -1},
	}).SetLimit(limit)

	cursor, err := s.collection().Find(ctx, bson.M{"currentStreak": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch streak leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.UserStudyReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode streak leaderboard: %w", err)
	}
	return reports, nil
}
