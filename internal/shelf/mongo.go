package shelf

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/routes"
)

const mongoCollection = "shelf"

// Mongo is a distributed shelf backend, for deployments where many serve
// processes share one store. Single-document writes are atomic, which
// satisfies the per-key serialization the contract requires.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	diags  *diag.Collector
}

type mongoEntry struct {
	Site    string `bson:"site"`
	Rule    string `bson:"rule"`
	Context []byte `bson:"context"`
}

// OpenMongo connects to the MongoDB deployment at uri and uses the named
// database's shelf collection.
func OpenMongo(ctx context.Context, uri, database string, dc *diag.Collector) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("shelf: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("shelf: ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(mongoCollection)
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "site", Value: 1}, {Key: "rule", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("shelf: ensure mongo index: %w", err)
	}

	return &Mongo{client: client, coll: coll, diags: dc}, nil
}

// Get implements Shelf.
func (m *Mongo) Get(ctx context.Context, site, rule string) (routes.Context, error) {
	var entry mongoEntry
	err := m.coll.FindOne(ctx, bson.M{"site": site, "rule": rule}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Site: site, Rule: rule}
	}
	if err != nil {
		return nil, fmt.Errorf("shelf: get (%s, %s): %w", site, rule, err)
	}
	return decodeContext(site, rule, entry.Context)
}

// Put implements Shelf.
func (m *Mongo) Put(ctx context.Context, site, rule string, v routes.Context) error {
	blob, err := encodeContext(site, rule, v, m.diags)
	if err != nil {
		return err
	}
	_, err = m.coll.ReplaceOne(ctx,
		bson.M{"site": site, "rule": rule},
		mongoEntry{Site: site, Rule: rule, Context: blob},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("shelf: put (%s, %s): %w", site, rule, err)
	}
	return nil
}

// List implements Shelf.
func (m *Mongo) List(ctx context.Context, site, rule string) ([]Key, error) {
	filter := bson.M{"site": site}
	if rule != "" {
		filter["rule"] = rule
	}
	cursor, err := m.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "rule", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("shelf: list %s: %w", site, err)
	}
	defer cursor.Close(ctx)

	var keys []Key
	for cursor.Next(ctx) {
		var entry mongoEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("shelf: list %s: %w", site, err)
		}
		keys = append(keys, Key{Site: entry.Site, Rule: entry.Rule})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("shelf: list %s: %w", site, err)
	}
	return keys, nil
}

// Drop implements Shelf.
func (m *Mongo) Drop(ctx context.Context, site, rule string) error {
	filter := bson.M{"site": site}
	if rule != "" {
		filter["rule"] = rule
	}
	if _, err := m.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("shelf: drop (%s, %s): %w", site, rule, err)
	}
	return nil
}

// Close implements Shelf.
func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}
