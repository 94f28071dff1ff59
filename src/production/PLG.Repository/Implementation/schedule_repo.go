package implementation

import (
	"context"
	"fmt"
	"time"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoScheduleRepository persists schedules in the "schedules" collection.
type MongoScheduleRepository struct {
	coll *mongo.Collection
}

func NewMongoScheduleRepository(db *mongo.Database) *MongoScheduleRepository {
	return &MongoScheduleRepository{coll: db.Collection("schedules")}
}

func (r *MongoScheduleRepository) Create(ctx context.Context, schedule plgmodels.Schedule) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, schedule)
	if err != nil {
		return "", fmt.Errorf("failed to create schedule: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *MongoScheduleRepository) List(ctx context.Context, deviceID string) ([]plgmodels.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if deviceID != "" {
		filter["device_id"] = deviceID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []plgmodels.Schedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode schedules: %w", err)
	}
	return schedules, nil
}

func (r *MongoScheduleRepository) ListActive(ctx context.Context) ([]plgmodels.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []plgmodels.Schedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode active schedules: %w", err)
	}
	return schedules, nil
}

func (r *MongoScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateByHexID(ctx, id, bson.M{"$set": bson.M{"is_active": active}})
}

func (r *MongoScheduleRepository) SetLastRun(ctx context.Context, id string, t time.Time) error {
	return r.updateByHexID(ctx, id, bson.M{"$set": bson.M{"last_run_at": t.UTC()}})
}

func (r *MongoScheduleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q: %w", id, err)
	}
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	return nil
}

func (r *MongoScheduleRepository) updateByHexID(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q: %w", id, err)
	}
	if _, err := r.coll.UpdateByID(ctx, oid, update); err != nil {
		return fmt.Errorf("failed to update schedule %s: %w", id, err)
	}
	return nil
}

// MongoScheduleLogRepository appends execution entries to "schedule_logs".
type MongoScheduleLogRepository struct {
	coll *mongo.Collection
}

func NewMongoScheduleLogRepository(db *mongo.Database) *MongoScheduleLogRepository {
	return &MongoScheduleLogRepository{coll: db.Collection("schedule_logs")}
}

func (r *MongoScheduleLogRepository) Append(ctx context.Context, entry plgmodels.ScheduleLog) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to append schedule log: %w", err)
	}
	return nil
}
