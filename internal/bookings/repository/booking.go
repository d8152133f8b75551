package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "counsel/internal/bookings/errors"
	"counsel/pkg/config"
	mongotx "counsel/pkg/db/mongo"
	"counsel/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	// Create stores booking under a newly assigned id, replacing any id it carries.
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByStudent(ctx context.Context, studentID string) ([]*model.Booking, error)
	FindByExpert(ctx context.Context, expertID string) ([]*model.Booking, error)
	// FindByStudentAndSession matches bookings in any status.
	FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*model.Booking, error)
	CountActiveBySession(ctx context.Context, sessionID string) (int64, error)
	CountActiveBySessions(ctx context.Context, sessionIDs []string) (map[string]int64, error)
	CountCompletedByExperts(ctx context.Context, expertIDs []string) (map[string]int64, error)
	CountByExpert(ctx context.Context, expertID string) (int64, error)
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) (*model.Booking, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without losing the transaction.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// The id is always assigned by the insert. A booking retried after an
	// aborted transaction still carries the rolled back id, which would
	// otherwise be stored as a string _id that FindByID never matches.
	booking.ID = ""
	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoBookingRepository) FindByStudentAndSession(ctx context.Context, studentID, sessionID string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"student_id": studentID, "live_session_id": sessionID})
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByStudent(ctx context.Context, studentID string) ([]*model.Booking, error) {
	return r.findNewestFirst(ctx, bson.M{"student_id": studentID})
}

func (r *mongoBookingRepository) FindByExpert(ctx context.Context, expertID string) ([]*model.Booking, error) {
	return r.findNewestFirst(ctx, bson.M{"expert_id": expertID})
}

func (r *mongoBookingRepository) findNewestFirst(ctx context.Context, filter bson.M) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func activeFilter() bson.M {
	return bson.M{"$ne": model.BookingCancelled}
}

func (r *mongoBookingRepository) CountActiveBySession(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"live_session_id": sessionID, "status": activeFilter()}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count session bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) CountActiveBySessions(ctx context.Context, sessionIDs []string) (map[string]int64, error) {
	return r.countGrouped(ctx, "live_session_id", sessionIDs, activeFilter())
}

func (r *mongoBookingRepository) CountCompletedByExperts(ctx context.Context, expertIDs []string) (map[string]int64, error) {
	return r.countGrouped(ctx, "expert_id", expertIDs, model.BookingCompleted)
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

// countGrouped counts bookings per value of field among ids whose status
// matches statusFilter.
func (r *mongoBookingRepository) countGrouped(ctx context.Context, field string, ids []string, statusFilter any) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{field: bson.M{"$in": ids}, "status": statusFilter}}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate booking counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []groupCount
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booking counts: %w", err)
	}
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

func (r *mongoBookingRepository) CountByExpert(ctx context.Context, expertID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"expert_id": expertID})
	if err != nil {
		return 0, fmt.Errorf("failed to count expert bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
