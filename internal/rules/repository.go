package rules

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kurir/internal/constants"
)

type Repository interface {
	Upsert(ctx context.Context, rule *Rule) error
	Get(ctx context.Context, sourcePattern string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	SetActive(ctx context.Context, sourcePattern string, active bool) error
	Delete(ctx context.Context, sourcePattern string) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		collection: db.Collection(constants.RulesCollection),
	}
}

func (r *mongoRepository) Upsert(ctx context.Context, rule *Rule) error {
	now := time.Now()
	rule.UpdatedAt = now

	filter := bson.M{"_id": rule.SourcePattern}
	update := bson.M{
		"$set": bson.M{
			"field_patterns":  rule.FieldPatterns,
			"target_bot":      rule.TargetBot,
			"output_template": rule.OutputTemplate,
			"active":          rule.Active,
			"updated_at":      rule.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert rule: %w", err)
	}

	if result.UpsertedCount > 0 {
		rule.CreatedAt = now
	} else {
		var stored Rule
		if err := r.collection.FindOne(ctx, filter).Decode(&stored); err == nil {
			rule.CreatedAt = stored.CreatedAt
		}
	}

	return nil
}

func (r *mongoRepository) Get(ctx context.Context, sourcePattern string) (*Rule, error) {
	filter := bson.M{"_id": sourcePattern}

	var rule Rule
	err := r.collection.FindOne(ctx, filter).Decode(&rule)
	if err == mongo.ErrNoDocuments {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &rule, nil
}

func (r *mongoRepository) List(ctx context.Context) ([]Rule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer cursor.Close(ctx)

	var ruleList []Rule
	if err := cursor.All(ctx, &ruleList); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	return ruleList, nil
}

func (r *mongoRepository) SetActive(ctx context.Context, sourcePattern string, active bool) error {
	filter := bson.M{"_id": sourcePattern}
	update := bson.M{"$set": bson.M{"active": active, "updated_at": time.Now()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, sourcePattern string) error {
	filter := bson.M{"_id": sourcePattern}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}
