// Package mongo implements the record source over a MongoDB collection,
// the store the series dataset historically lives in. Documents stream off
// a Find cursor one at a time; bson.M decodes straight into the raw record
// shape the pipeline expects.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"seriesstats/internal/records"
	"seriesstats/internal/source"
)

func init() {
	source.Register("mongo", New)
}

// serverSelectionTimeout bounds how long connection setup may stall on an
// unreachable cluster. Matches the original dashboard's 5s.
const serverSelectionTimeout = 5 * time.Second

// New connects to the cluster and verifies the namespace is reachable.
// A missing database or collection fails here, at load time, instead of
// surfacing later as a silently empty chart.
func New(ctx context.Context, cfg source.Config) (source.Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mongo: dsn is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("mongo: database and collection are required")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.DSN).
		SetServerSelectionTimeout(serverSelectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	names, err := client.Database(cfg.Database).ListCollectionNames(ctx, bson.D{{Key: "name", Value: cfg.Collection}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: list collections: %w", err)
	}
	if len(names) == 0 {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: collection %s.%s does not exist", cfg.Database, cfg.Collection)
	}

	return &src{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

type src struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func (s *src) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *src) Records(ctx context.Context) (*source.Stream, error) {
	cur, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}

	ch := make(chan records.Raw, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(ch)
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc bson.M
			if err := cur.Decode(&doc); err != nil {
				errc <- fmt.Errorf("mongo: decode document: %w", err)
				return
			}
			select {
			case ch <- records.Raw(doc):
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := cur.Err(); err != nil {
			errc <- fmt.Errorf("mongo: cursor: %w", err)
			return
		}
		errc <- nil
	}()

	return source.NewStream(ch, func() error { return <-errc }), nil
}
