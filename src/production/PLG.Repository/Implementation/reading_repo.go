package implementation

import (
	"context"
	"fmt"
	"sync"
	"time"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReadingRepository stores readings in one collection per device,
// named readings_<deviceID>, with an ascending timestamp index.
type MongoReadingRepository struct {
	db *mongo.Database

	mu      sync.Mutex
	indexed map[string]bool
}

func NewMongoReadingRepository(db *mongo.Database) *MongoReadingRepository {
	return &MongoReadingRepository{
		db:      db,
		indexed: make(map[string]bool),
	}
}

func (r *MongoReadingRepository) collection(ctx context.Context, deviceID string) *mongo.Collection {
	coll := r.db.Collection("readings_" + deviceID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.indexed[deviceID] {
		// Index creation is idempotent; a failure here only costs query
		// speed, not correctness.
		_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
		})
		r.indexed[deviceID] = true
	}
	return coll
}

func (r *MongoReadingRepository) Insert(ctx context.Context, deviceID string, reading plgmodels.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// Storage convention is naive UTC.
	reading.Timestamp = reading.Timestamp.UTC()

	_, err := r.collection(ctx, deviceID).InsertOne(ctx, reading)
	if err != nil {
		return fmt.Errorf("failed to insert reading for %s: %w", deviceID, err)
	}
	return nil
}

func (r *MongoReadingRepository) Range(ctx context.Context, deviceID string, start, end time.Time) ([]plgmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"timestamp": bson.M{"$gte": start, "$lte": end}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := r.collection(ctx, deviceID).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for %s: %w", deviceID, err)
	}
	defer cursor.Close(ctx)

	var readings []plgmodels.Reading
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("failed to decode readings for %s: %w", deviceID, err)
	}
	return readings, nil
}

func (r *MongoReadingRepository) Latest(ctx context.Context, deviceID string, n int64) ([]plgmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(n)

	cursor, err := r.collection(ctx, deviceID).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings for %s: %w", deviceID, err)
	}
	defer cursor.Close(ctx)

	var readings []plgmodels.Reading
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("failed to decode latest readings for %s: %w", deviceID, err)
	}

	// The query runs newest-first for the limit; callers get ascending order.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}
