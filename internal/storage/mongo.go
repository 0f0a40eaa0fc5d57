package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const disconnectTimeout = 5 * time.Second

// Dialer returns a pool dial function for the given MongoDB URI. The
// connection is pinged before being handed out so that a dead server
// surfaces at acquire time rather than on first use.
func Dialer(uri string) func(ctx context.Context) (*mongo.Client, error) {
	return func(ctx context.Context) (*mongo.Client, error) {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", uri, err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ping %s: %w", uri, err)
		}
		return client, nil
	}
}

// Disconnect is the pool close function for mongo clients.
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
