package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a Store backed by one MongoDB database. Ids are ObjectID hex strings.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *slog.Logger
}

// NewMongo connects and pings the server.
func NewMongo(ctx context.Context, uri, database string, logger *slog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Connected to MongoDB", "database", database)

	return &Mongo{
		client:   client,
		database: client.Database(database),
		logger:   logger,
	}, nil
}

func (m *Mongo) collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

func (m *Mongo) Insert(ctx context.Context, collection string, row Row) (string, error) {
	doc := bson.M(insertable(row, time.Now()))
	result, err := m.collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *Mongo) SelectByID(ctx context.Context, collection, id string) (Row, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc bson.M
	err = m.collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(doc), nil
}

func (m *Mongo) SelectAll(ctx context.Context, collection string, q Query) ([]Row, error) {
	filter := bson.M{}
	if q.Field != "" {
		filter[q.Field] = q.Value
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}

	cursor, err := m.collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, fromBSON(doc))
	}
	return rows, nil
}

func (m *Mongo) DeleteByID(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := m.collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteWhere(ctx context.Context, collection, field string, value any) (int64, error) {
	result, err := m.collection(collection).DeleteMany(ctx, bson.M{field: value})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the lookup indexes used by the analysis repository.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := m.collection(CollAnalysis).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", CollAnalysis, err)
	}

	for _, name := range childCollections {
		_, err := m.collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{
				{Key: "analysisId", Value: 1},
				{Key: "ordinal", Value: 1},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// fromBSON maps a decoded document onto a Row: _id becomes a hex "id" and
// driver-specific scalar types become plain Go values.
func fromBSON(doc bson.M) Row {
	row := make(Row, len(doc))
	for k, v := range doc {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				row["id"] = oid.Hex()
			} else {
				row["id"] = fmt.Sprint(v)
			}
			continue
		}
		row[k] = fromBSONValue(v)
	}
	return row
}

func fromBSONValue(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case int32:
		return int64(val)
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromBSONValue(item)
		}
		return out
	case bson.M:
		return map[string]any(fromBSON(val))
	case bson.D:
		doc := make(bson.M, len(val))
		for _, e := range val {
			doc[e.Key] = e.Value
		}
		return map[string]any(fromBSON(doc))
	}
	return v
}
