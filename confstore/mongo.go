// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package confstore

import (
	"context"
	"net"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/repstream/replog/errors"
	"github.com/repstream/replog/utils"
)

const (
	// collection hosting the throttle configuration entries
	defaultCollectionName = "throttle-config"
)

// docKey is the composite primary key of a configuration entry
// document, one document per scoped entry.
type docKey struct {
	Kind string `bson:"kind"`
	Name string `bson:"name"`
	Key  string `bson:"key"`
}

type entryDoc struct {
	Value string `bson:"value,omitempty"`
}

type listEntry struct {
	ID    docKey `bson:"_id"`
	Value string `bson:"value,omitempty"`
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID docKey `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *entryDoc `bson:"fullDocument,omitempty"`
}

// interprets mongo db error and returns library parsable error codes
func interpretMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(errors.AlreadyExists, err.Error())
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(errors.NotFound, err.Error())
	}
	return err
}

// MongoConfig carries the connection parameters of the cluster
// configuration database.
type MongoConfig struct {
	Host     string
	Port     string
	Uri      string
	Username string
	Password string

	// Database hosting the configuration collection, defaults
	// to "replog"
	Database string

	// Collection name override, mainly for tests sharing a server
	Collection string
}

func (c *MongoConfig) validate() error {
	if c.Uri != "" {
		if c.Host != "" || c.Port != "" {
			return errors.Wrap(errors.InvalidArgument, "cannot provide host and port if uri is configured")
		}
	} else {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == "" || c.Port == "0" {
			c.Port = "27017"
		} else {
			if _, err := strconv.Atoi(c.Port); err != nil {
				return errors.Wrap(errors.InvalidArgument, "invalid database port")
			}
		}
	}
	if c.Database == "" {
		c.Database = "replog"
	}
	if c.Collection == "" {
		c.Collection = defaultCollectionName
	}
	return nil
}

// MongoStore implements Store on top of a mongodb collection, using
// change streams for watch delivery. It requires a replica-set server
// since plain standalone deployments do not serve change streams.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
	log    *zap.Logger
}

// NewMongoStore connects to the configuration database and returns a
// Store working out of a single entry collection.
func NewMongoStore(conf *MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var uri string
	if conf.Uri != "" {
		uri = conf.Uri
	} else {
		uri = "mongodb://" + net.JoinHostPort(conf.Host, conf.Port)
	}
	clientOptions := options.Client()
	clientOptions.ApplyURI(uri)
	if conf.Username != "" {
		clientOptions.SetAuth(options.Credential{
			AuthMechanism: "SCRAM-SHA-256",
			AuthSource:    "admin",
			Username:      conf.Username,
			Password:      conf.Password,
		})
	}

	// majority write concern with journaling, a throttle entry
	// acknowledged to the admin must survive a primary failover
	wc := writeconcern.Majority()
	wc.Journal = utils.BoolP(true)
	clientOptions.SetWriteConcern(wc)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, err
	}

	return &MongoStore{
		client: client,
		col:    client.Database(conf.Database).Collection(conf.Collection),
		log:    logger,
	}, nil
}

// HealthCheck reports whether the configuration database is reachable.
func (s *MongoStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return errors.Wrapf(errors.Unavailable, "config store not reachable: %s", err)
	}
	return nil
}

// Close disconnects from the configuration database.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) key(scope Scope, key string) docKey {
	return docKey{
		Kind: string(scope.Kind),
		Name: scope.Name,
		Key:  key,
	}
}

func (s *MongoStore) Get(ctx context.Context, scope Scope, key string) (string, error) {
	doc := &entryDoc{}
	resp := s.col.FindOne(ctx, bson.M{"_id": s.key(scope, key)})
	if err := resp.Decode(doc); err != nil {
		return "", interpretMongoError(err)
	}
	return doc.Value, nil
}

func (s *MongoStore) List(ctx context.Context, kind ScopeKind, key string) ([]Entry, error) {
	filter := bson.M{
		"_id.kind": string(kind),
		"_id.key":  key,
	}
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, interpretMongoError(err)
	}
	var docs []listEntry
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	list := make([]Entry, 0, len(docs))
	for _, d := range docs {
		list = append(list, Entry{
			Scope: Scope{Kind: ScopeKind(d.ID.Kind), Name: d.ID.Name},
			Key:   d.ID.Key,
			Value: d.Value,
		})
	}
	return list, nil
}

func (s *MongoStore) Set(ctx context.Context, e Entry) error {
	if e.Key == "" || e.Scope.Name == "" {
		return errors.Wrap(errors.InvalidArgument, "config entry requires scope name and key")
	}
	opts := options.UpdateOne().SetUpsert(true)
	_, err := s.col.UpdateOne(
		ctx,
		bson.M{"_id": s.key(e.Scope, e.Key)},
		bson.D{
			{Key: "$set", Value: entryDoc{Value: e.Value}},
		},
		opts)
	if err != nil {
		return interpretMongoError(err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, scope Scope, key string) error {
	resp, err := s.col.DeleteOne(ctx, bson.M{"_id": s.key(scope, key)})
	if err != nil {
		return interpretMongoError(err)
	}
	if resp.DeletedCount == 0 {
		return errors.Wrap(errors.NotFound, "no matching config entry found")
	}
	return nil
}

// Watch follows the change stream of the entry collection and
// translates change documents into Entry notifications.
func (s *MongoStore) Watch(ctx context.Context, fn WatchFn) error {
	if fn == nil {
		return errors.Wrap(errors.InvalidArgument, "watch callback not specified")
	}

	opts := options.ChangeStream()
	opts.SetFullDocument(options.UpdateLookup)

	stream, err := s.col.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return err
	}

	// run the loop on stream in a separate go routine, allowing the
	// watch starter to resume control and manage the stream lifetime
	// by virtue of the passed context
	go func() {
		defer func() {
			// ignore the error returned by stream close as of now
			_ = stream.Close(context.Background())
		}()
		defer func() {
			if !errors.Is(ctx.Err(), context.Canceled) {
				// the stream ending for any reason other than
				// cancellation means config updates stop flowing,
				// which must not go unnoticed
				s.log.Panic("config change stream ended unexpectedly",
					zap.Error(stream.Err()))
			}
		}()
		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				s.log.Error("closing config watch due to decode failure",
					zap.Error(err))
				return
			}
			e := Entry{
				Scope: Scope{
					Kind: ScopeKind(ev.DocumentKey.ID.Kind),
					Name: ev.DocumentKey.ID.Name,
				},
				Key: ev.DocumentKey.ID.Key,
			}
			if ev.FullDocument != nil {
				e.Value = ev.FullDocument.Value
			}
			fn(ev.OperationType, e)
		}
	}()

	return nil
}
