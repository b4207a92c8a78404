package db

import (
	"context"
	"fmt"

	"readhub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTicketStore appends milestone reward tickets
type MongoTicketStore struct{}

func NewTicketStore() *MongoTicketStore {
	return &MongoTicketStore{}
}

func (s *MongoTicketStore) collection() *mongo.Collection {
	return MongoDatabase.Collection("tickets")
}

func (s *MongoTicketStore) Insert(ctx context.Context, ticket models.Ticket) error {
	if _, err := s.collection().InsertOne(ctx, ticket); err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}
