// Package tracer executes translated queries against the finance-records
// store and normalizes the documents before they are returned.
package tracer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sampottinger/co-opencampaigndata/internal/models"
	"github.com/sampottinger/co-opencampaigndata/internal/query"
)

// Layouts accepted for date values left as strings by the aggregation
// process. Tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// RecordStore reads raw documents for a translated selector. Implemented
// by storage.TracerRepository.
type RecordStore interface {
	Find(ctx context.Context, collection string, selector bson.M, page query.Page) ([]bson.M, error)
}

// Service translates and executes record queries.
type Service struct {
	store      RecordStore
	whitelist  query.Whitelist
	limits     query.Limits
	dateFields []string
}

// NewService builds a record query service. whitelist and dateFields are
// loaded once at startup and treated as immutable.
func NewService(store RecordStore, whitelist query.Whitelist, limits query.Limits, dateFields []string) *Service {
	return &Service{
		store:      store,
		whitelist:  whitelist,
		limits:     limits,
		dateFields: dateFields,
	}
}

// ExecuteQuery translates q, runs it against the records store, and
// returns the normalized result set as one unit. Translation failures
// reject the query before any store round-trip; store failures return no
// partial results.
func (s *Service) ExecuteQuery(ctx context.Context, q models.Query) ([]bson.M, error) {
	selector, page, err := query.Translate(q, s.whitelist, s.limits)
	if err != nil {
		return nil, err
	}

	collection := strings.ToLower(q.TargetCollection)
	docs, err := s.store.Find(ctx, collection, selector, page)
	if err != nil {
		return nil, fmt.Errorf("execute %s query: %w", collection, err)
	}

	for _, doc := range docs {
		s.normalizeDates(doc)
	}
	return docs, nil
}

// normalizeDates rewrites configured date fields to ISO-8601. A value that
// cannot be interpreted as a date is removed from the document instead of
// failing the query; some legacy imports carry malformed dates and the
// rest of the record is still useful.
func (s *Service) normalizeDates(doc bson.M) {
	for _, field := range s.dateFields {
		value, ok := doc[field]
		if !ok || value == nil {
			continue
		}

		switch v := value.(type) {
		case time.Time:
			doc[field] = v.UTC().Format(time.RFC3339)
		case primitive.DateTime:
			doc[field] = v.Time().UTC().Format(time.RFC3339)
		case string:
			if v == "" {
				continue
			}
			parsed, err := parseDate(v)
			if err != nil {
				delete(doc, field)
				continue
			}
			doc[field] = parsed.UTC().Format(time.RFC3339)
		default:
			delete(doc, field)
		}
	}
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date value %q", value)
}
