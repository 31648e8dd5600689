package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"restaurant-scraper/models"
	"restaurant-scraper/utils"
)

const opTimeout = 5 * time.Second

// MongoStore persists restaurant documents in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// restaurantDoc is the store-native shape; timestamps stay BSON datetimes
// here and are rendered to strings before leaving the package.
type restaurantDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Category      string             `bson:"category"`
	Address       string             `bson:"address"`
	Phone         string             `bson:"phone"`
	Description   string             `bson:"description"`
	BusinessHours string             `bson:"businessHours"`
	ImageURL      string             `bson:"imageUrl"`
	MapURL        string             `bson:"mapUrl"`
	Reviews       int                `bson:"reviews"`
	BlogReviews   int                `bson:"blogReviews"`
	Rating        float64            `bson:"rating"`
	Tags          []string           `bson:"tags"`
	CreatedAt     *time.Time         `bson:"createdAt,omitempty"`
	UpdatedAt     *time.Time         `bson:"updatedAt,omitempty"`
}

func (d *restaurantDoc) toModel() *models.Restaurant {
	r := &models.Restaurant{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Category:      d.Category,
		Address:       d.Address,
		Phone:         d.Phone,
		Description:   d.Description,
		BusinessHours: d.BusinessHours,
		ImageURL:      d.ImageURL,
		MapURL:        d.MapURL,
		Reviews:       d.Reviews,
		BlogReviews:   d.BlogReviews,
		Rating:        d.Rating,
		Tags:          d.Tags,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if d.CreatedAt != nil {
		r.CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	if d.UpdatedAt != nil {
		r.UpdatedAt = d.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// NewMongoStore connects to MongoDB, verifies the connection with a
// retried ping, and returns a store bound to the given collection.
func NewMongoStore(ctx context.Context, uri, dbName, collName string, retry *utils.RetryConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	err = retry.Do(ctx, "mongo-ping", func() error {
		pingCtx, cancelPing := context.WithTimeout(ctx, opTimeout)
		defer cancelPing()
		return client.Ping(pingCtx, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(collName),
	}, nil
}

func (m *MongoStore) Add(ctx context.Context, fields map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := m.coll.InsertOne(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("mongo: insert: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongo: unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *MongoStore) SetMerge(ctx context.Context, id string, fields map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("mongo: bad id %q: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = m.coll.UpdateByID(ctx, oid, bson.M{"$set": fields},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: merge write: %w", err)
	}
	return nil
}

func (m *MongoStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("mongo: bad id %q: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := m.coll.UpdateByID(ctx, oid, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("mongo: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc restaurantDoc
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get: %w", err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) ListAll(ctx context.Context) ([]*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := m.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []restaurantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode list: %w", err)
	}

	records := make([]*models.Restaurant, 0, len(docs))
	for i := range docs {
		records = append(records, docs[i].toModel())
	}
	return records, nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}
