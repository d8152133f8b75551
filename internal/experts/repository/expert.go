package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	expertserrors "counsel/internal/experts/errors"
	"counsel/pkg/config"
	"counsel/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Experts"
)

type ExpertRepository interface {
	Create(ctx context.Context, expert *model.Expert) error
	FindByID(ctx context.Context, id string) (*model.Expert, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.Expert, error)
	FindByEmail(ctx context.Context, email string) (*model.Expert, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Expert, error)
	// FindActive returns active, non-archived experts by rating, best first.
	FindActive(ctx context.Context) ([]*model.Expert, error)
	// FindAll returns the roster, most recently updated first.
	FindAll(ctx context.Context, deleted bool) ([]*model.Expert, error)
	Update(ctx context.Context, expert *model.Expert) error
	Delete(ctx context.Context, id string) error
}

type mongoExpertRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoExpertRepository(cfg *config.Config) ExpertRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoExpertRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoExpertRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoExpertRepository) Create(ctx context.Context, expert *model.Expert) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	expert.CreatedAt = now
	expert.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, expert)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return expertserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to create expert: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		expert.ID = oid.Hex()
	}
	return nil
}

func (r *mongoExpertRepository) FindByID(ctx context.Context, id string) (*model.Expert, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", expertserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoExpertRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Expert, error) {
	return r.findOne(ctx, bson.M{"external_id": externalID})
}

func (r *mongoExpertRepository) FindByEmail(ctx context.Context, email string) (*model.Expert, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoExpertRepository) findOne(ctx context.Context, filter bson.M) (*model.Expert, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var expert model.Expert
	err := r.collection.FindOne(ctx, filter).Decode(&expert)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, expertserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find expert: %w", err)
	}
	return &expert, nil
}

func (r *mongoExpertRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Expert, error) {
	if len(ids) == 0 {
		return []*model.Expert{}, nil
	}

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, nil)
}

func (r *mongoExpertRepository) FindActive(ctx context.Context) ([]*model.Expert, error) {
	filter := bson.M{"is_active": true, "is_deleted": false}
	return r.find(ctx, filter, bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}})
}

func (r *mongoExpertRepository) FindAll(ctx context.Context, deleted bool) ([]*model.Expert, error) {
	return r.find(ctx, bson.M{"is_deleted": deleted}, bson.D{{Key: "updated_at", Value: -1}})
}

func (r *mongoExpertRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*model.Expert, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find experts: %w", err)
	}
	defer cursor.Close(ctx)

	experts := []*model.Expert{}
	if err = cursor.All(ctx, &experts); err != nil {
		return nil, fmt.Errorf("failed to decode experts: %w", err)
	}
	return experts, nil
}

func (r *mongoExpertRepository) Update(ctx context.Context, expert *model.Expert) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(expert.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", expertserrors.ErrInvalidID, expert.ID)
	}

	expert.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"bio":            expert.Bio,
		"specialization": expert.Specialization,
		"experience":     expert.Experience,
		"is_active":      expert.IsActive,
		"is_deleted":     expert.IsDeleted,
		"updated_at":     expert.UpdatedAt,
	}
	if expert.ExternalID != "" {
		set["external_id"] = expert.ExternalID
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return expertserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to update expert: %w", err)
	}
	if result.MatchedCount == 0 {
		return expertserrors.ErrNotFound
	}
	return nil
}

func (r *mongoExpertRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", expertserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete expert: %w", err)
	}
	if result.DeletedCount == 0 {
		return expertserrors.ErrNotFound
	}
	return nil
}
