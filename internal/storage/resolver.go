// Package storage persists accounts, usage logs, and serves the
// finance-records collections, all over pooled MongoDB connections.
package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sampottinger/co-opencampaigndata/internal/dbpool"
)

// Database identifies a logical persistence domain. Accounts and usage
// logs share one physical database; finance records live in another.
type Database int

const (
	// AccountsDatabase holds the accounts and usages collections.
	AccountsDatabase Database = iota

	// TracerDatabase holds the aggregated finance-records collections.
	TracerDatabase
)

func (d Database) String() string {
	switch d {
	case AccountsDatabase:
		return "accounts"
	case TracerDatabase:
		return "tracer"
	}
	return fmt.Sprintf("Database(%d)", int(d))
}

// Pool is the connection pool type both logical databases use.
type Pool = dbpool.Pool[*mongo.Client]

// Resolver maps a logical database to collection handles through its pool.
// It owns one pool per logical database; the pools themselves are built by
// the process entry point and injected here.
type Resolver struct {
	accountsPool *Pool
	tracerPool   *Pool
	accountsName string
	tracerName   string
}

// NewResolver wires the per-database pools and database names.
func NewResolver(accountsPool, tracerPool *Pool, accountsName, tracerName string) *Resolver {
	return &Resolver{
		accountsPool: accountsPool,
		tracerPool:   tracerPool,
		accountsName: accountsName,
		tracerName:   tracerName,
	}
}

// Acquire checks a client out of the pool backing db.
func (r *Resolver) Acquire(ctx context.Context, db Database) (*mongo.Client, error) {
	return r.pool(db).Acquire(ctx)
}

// Release returns a checked-out client to the pool backing db.
func (r *Resolver) Release(db Database, client *mongo.Client) {
	r.pool(db).Release(client)
}

// Collection resolves a collection handle on a checked-out client.
func (r *Resolver) Collection(client *mongo.Client, db Database, name string) *mongo.Collection {
	switch db {
	case AccountsDatabase:
		return client.Database(r.accountsName).Collection(name)
	case TracerDatabase:
		return client.Database(r.tracerName).Collection(name)
	}
	panic(fmt.Sprintf("storage: unknown logical database %d", int(db)))
}

// Close drains both pools.
func (r *Resolver) Close() {
	r.accountsPool.Close()
	r.tracerPool.Close()
}

func (r *Resolver) pool(db Database) *Pool {
	switch db {
	case AccountsDatabase:
		return r.accountsPool
	case TracerDatabase:
		return r.tracerPool
	}
	panic(fmt.Sprintf("storage: unknown logical database %d", int(db)))
}
