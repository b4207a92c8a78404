package services

import (
	"context"
	"time"

	"readhub/db"
	"readhub/models"
	"readhub/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TicketService is the default TicketGranter: it appends reward rows to
// the tickets collection. Failures are logged, never propagated; reward
// delivery is fire-and-forget for the streak engine.
type TicketService struct {
	store *db.MongoTicketStore
}

func NewTicketService() *TicketService {
	return &TicketService{store: db.NewTicketStore()}
}

func (t *TicketService) GrantTicket(ctx context.Context, userID primitive.ObjectID, amount int, reason string) {
	ticket := models.Ticket{
		ID:        newID(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := t.store.Insert(ctx, ticket); err != nil {
		utils.Logger.Error("ticket_grant_failed",
			zap.String("userId", userID.Hex()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}

	utils.Logger.Info("ticket_granted",
		zap.String("userId", userID.Hex()),
		zap.Int("amount", amount),
		zap.String("reason", reason),
	)
}

func newID() string {
	return uuid.NewString()
}
