// Package query translates abstract record queries into store-native
// selectors. A static per-collection field whitelist is the security
// boundary: nothing outside it ever reaches a selector.
package query

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sampottinger/co-opencampaigndata/internal/models"
)

var (
	// ErrUnknownCollection is returned for a query targeting a collection
	// with no whitelist entry.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnknownField is returned for a query parameter absent from the
	// target collection's whitelist.
	ErrUnknownField = errors.New("unknown query field")
)

// FieldIndexEntry maps one whitelisted query parameter onto the underlying
// document attribute. An empty QueryOp means equality.
type FieldIndexEntry struct {
	DBField string
	QueryOp string
}

// Whitelist maps lower-cased collection names to their allowed query
// parameters. Loaded once at startup and never mutated afterwards.
type Whitelist map[string]map[string]FieldIndexEntry

// Limits holds the pagination bounds applied to every translated query.
type Limits struct {
	DefaultLimit int64
	MaxLimit     int64
}

// Page is the skip/limit window handed to the store.
type Page struct {
	Skip  int64
	Limit int64
}

// Translate converts q into a selector and clamped page window. Parameters
// sharing a DBField merge into one constraint document, so a min and a max
// form a closed range. An equality parameter owns its field outright: it
// replaces any operator constraints another parameter contributed, and
// later operators for that field are ignored. This is defined behavior for
// a contract violation, not best effort.
func Translate(q models.Query, whitelist Whitelist, limits Limits) (bson.M, Page, error) {
	name := strings.ToLower(q.TargetCollection)
	fields, ok := whitelist[name]
	if !ok {
		return nil, Page{}, fmt.Errorf("%w: %s", ErrUnknownCollection, q.TargetCollection)
	}

	selector := bson.M{}
	equality := map[string]bool{}
	for param, value := range q.Params {
		entry, ok := fields[param]
		if !ok {
			return nil, Page{}, fmt.Errorf("%w: %s", ErrUnknownField, param)
		}

		if entry.QueryOp == "" {
			selector[entry.DBField] = value
			equality[entry.DBField] = true
			continue
		}
		if equality[entry.DBField] {
			continue
		}

		constraint, ok := selector[entry.DBField].(bson.M)
		if !ok {
			constraint = bson.M{}
			selector[entry.DBField] = constraint
		}
		constraint[entry.QueryOp] = value
	}

	page := Page{Skip: q.Offset, Limit: q.ResultLimit}
	if page.Skip < 0 {
		page.Skip = 0
	}
	if page.Limit <= 0 {
		page.Limit = limits.DefaultLimit
	}
	if page.Limit > limits.MaxLimit {
		page.Limit = limits.MaxLimit
	}

	return selector, page, nil
}
