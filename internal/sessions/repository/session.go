package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionserrors "counsel/internal/sessions/errors"
	"counsel/pkg/config"
	"counsel/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Live_sessions"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.LiveSession) error
	FindByID(ctx context.Context, id string) (*model.LiveSession, error)
	// FindUpcoming returns upcoming slots scheduled after the given time,
	// soonest first. An empty expertID matches every expert.
	FindUpcoming(ctx context.Context, after time.Time, expertID string) ([]*model.LiveSession, error)
	FindByExpert(ctx context.Context, expertID string) ([]*model.LiveSession, error)
	FindAll(ctx context.Context) ([]*model.LiveSession, error)
	CountByExpert(ctx context.Context, expertID string) (int64, error)
	// ClaimBookingTurn bumps the slot's booking_seq while it is still
	// upcoming. Inside a transaction this makes concurrent bookers of the
	// same slot conflict on the slot document.
	ClaimBookingTurn(ctx context.Context, id string) error
}

type mongoSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSessionRepository) Create(ctx context.Context, session *model.LiveSession) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	session.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create live session: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	var session model.LiveSession
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find live session: %w", err)
	}
	return &session, nil
}

func (r *mongoSessionRepository) FindUpcoming(ctx context.Context, after time.Time, expertID string) ([]*model.LiveSession, error) {
	filter := bson.M{
		"status":       model.SessionUpcoming,
		"scheduled_at": bson.M{"$gt": after},
	}
	if expertID != "" {
		filter["expert_id"] = expertID
	}
	return r.find(ctx, filter, 1)
}

func (r *mongoSessionRepository) FindByExpert(ctx context.Context, expertID string) ([]*model.LiveSession, error) {
	return r.find(ctx, bson.M{"expert_id": expertID}, -1)
}

func (r *mongoSessionRepository) FindAll(ctx context.Context) ([]*model.LiveSession, error) {
	return r.find(ctx, bson.M{}, -1)
}

func (r *mongoSessionRepository) find(ctx context.Context, filter bson.M, order int) ([]*model.LiveSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: order}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find live sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*model.LiveSession{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode live sessions: %w", err)
	}
	return sessions, nil
}

func (r *mongoSessionRepository) CountByExpert(ctx context.Context, expertID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"expert_id": expertID})
	if err != nil {
		return 0, fmt.Errorf("failed to count live sessions: %w", err)
	}
	return count, nil
}

func (r *mongoSessionRepository) ClaimBookingTurn(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": model.SessionUpcoming}
	update := bson.M{"$inc": bson.M{"booking_seq": 1}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to claim booking turn: %w", err)
	}
	if result.MatchedCount == 0 {
		return sessionserrors.ErrNotBookable
	}
	return nil
}
