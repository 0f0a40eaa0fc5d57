package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sampottinger/co-opencampaigndata/internal/query"
)

// TracerRepository reads the aggregated finance-records collections. The
// collections are populated by an independent aggregation process; this
// repository never writes to them.
type TracerRepository struct {
	resolver *Resolver
}

// NewTracerRepository creates a repository over the finance-records
// database.
func NewTracerRepository(resolver *Resolver) *TracerRepository {
	return &TracerRepository{resolver: resolver}
}

// Find executes a translated selector against collection with the given
// page window and returns the full result set as one unit. A store failure
// yields ErrQueryExecution with no partial results.
func (r *TracerRepository) Find(ctx context.Context, collection string, selector bson.M, page query.Page) ([]bson.M, error) {
	client, err := r.resolver.Acquire(ctx, TracerDatabase)
	if err != nil {
		return nil, fmt.Errorf("acquire tracer connection: %w", err)
	}
	defer r.resolver.Release(TracerDatabase, client)

	opts := options.Find().SetSkip(page.Skip).SetLimit(page.Limit)
	col := r.resolver.Collection(client, TracerDatabase, collection)
	cursor, err := col.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", ErrQueryExecution, collection, err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: read %s results: %v", ErrQueryExecution, collection, err)
	}
	return docs, nil
}
