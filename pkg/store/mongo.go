// Package store persists assembled records in MongoDB.
//
// Documents are stored in the [export.Document] shape, one per
// (package, version). Writing a record that is already stored replaces it,
// so re-running a batch over the same index is idempotent.
//
// [export.Document]: github.com/matzehuels/debsrc/pkg/export.Document
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/debsrc/pkg/export"
)

// Defaults used when MongoOptions leaves a field empty.
const (
	DefaultDatabase   = "debsrc"
	DefaultCollection = "sources"
	connectTimeout    = 10 * time.Second
)

// MongoOptions configures a MongoSink.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// MongoSink upserts documents keyed by (package, version).
// It is safe for concurrent use.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink connects to MongoDB and ensures the unique identity index.
func NewMongoSink(ctx context.Context, opts MongoOptions) (*MongoSink, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo: empty URI")
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoSink{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}
	if err := s.ensureIndex(cctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoSink) ensureIndex(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "package", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("package_version"),
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func identityFilter(pkg, version string) bson.D {
	return bson.D{{Key: "package", Value: pkg}, {Key: "version", Value: version}}
}

// Write stores doc, replacing any stored document with the same identity.
func (s *MongoSink) Write(ctx context.Context, doc *export.Document) error {
	_, err := s.coll.ReplaceOne(ctx, identityFilter(doc.Package, doc.Version), doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", doc.Identity(), err)
	}
	return nil
}

// Get loads the stored document for (pkg, version). The boolean is false
// when no such document exists.
func (s *MongoSink) Get(ctx context.Context, pkg, version string) (*export.Document, bool, error) {
	var doc export.Document
	err := s.coll.FindOne(ctx, identityFilter(pkg, version)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo find %s %s: %w", pkg, version, err)
	}
	return &doc, true, nil
}

// Versions lists the stored versions of pkg.
func (s *MongoSink) Versions(ctx context.Context, pkg string) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.D{{Key: "package", Value: pkg}},
		options.Find().SetProjection(bson.D{{Key: "version", Value: 1}}).SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", pkg, err)
	}
	defer cur.Close(ctx)

	var versions []string
	for cur.Next(ctx) {
		var row struct {
			Version string `bson:"version"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		versions = append(versions, row.Version)
	}
	return versions, cur.Err()
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
