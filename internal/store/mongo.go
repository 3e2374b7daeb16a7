package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"inventory-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo stores each resource in its own MongoDB collection. The record
// identifier is kept as the hex string in _id.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	unique map[string][]string
}

// NewMongo connects to MongoDB and verifies the connection
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Mongo{
		client: client,
		db:     client.Database(database),
		unique: make(map[string][]string),
	}, nil
}

func (m *Mongo) Find(ctx context.Context, collection string, filter Filter) ([]models.Document, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	cursor, err := m.db.Collection(collection).Find(ctx, query, options.Find().SetSort(bson.D{{Key: models.FieldCreatedAt, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0)
	for cursor.Next(ctx) {
		doc, err := rawToDocument(cursor.Current)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docs, nil
}

func (m *Mongo) FindByID(ctx context.Context, collection, id string) (models.Document, error) {
	raw, err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", collection, id, err)
	}
	return rawToDocument(raw)
}

func (m *Mongo) Insert(ctx context.Context, collection string, doc models.Document) error {
	if _, err := m.db.Collection(collection).InsertOne(ctx, map[string]any(doc)); err != nil {
		return m.translate(collection, err)
	}
	return nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, doc models.Document) error {
	res, err := m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, map[string]any(doc))
	if err != nil {
		return m.translate(collection, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates a unique index per field. Documents without the
// field are not indexed.
func (m *Mongo) EnsureIndexes(ctx context.Context, collection string, unique []string) error {
	if len(unique) == 0 {
		return nil
	}

	indexes := make([]mongo.IndexModel, 0, len(unique))
	for _, field := range unique {
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetName(indexName(collection, field)).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string"}}),
		})
	}
	if _, err := m.db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create unique indexes on %s: %w", collection, err)
	}

	m.unique[collection] = append([]string(nil), unique...)
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *Mongo) translate(collection string, err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to write %s document: %w", collection, err)
	}

	dup := &DuplicateKeyError{Collection: collection}
	msg := err.Error()
	for _, field := range m.unique[collection] {
		if strings.Contains(msg, indexName(collection, field)) {
			dup.Field = field
			return dup
		}
	}
	if strings.Contains(msg, "_id_") {
		dup.Field = models.FieldID
	}
	return dup
}

// rawToDocument converts a BSON document to its JSON document form through
// relaxed Extended JSON, which renders numbers, strings and nested values
// as plain JSON.
func rawToDocument(raw bson.Raw) (models.Document, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(ext, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
