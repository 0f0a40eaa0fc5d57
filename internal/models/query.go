package models

import "go.mongodb.org/mongo-driver/bson"

// Query is the abstract, store-agnostic description of a records lookup.
// The HTTP boundary builds it from typed request parameters; the query
// translator turns it into a store selector. It is never persisted as-is.
type Query struct {
	TargetCollection string
	Params           map[string]interface{}
	Offset           int64
	ResultLimit      int64
}

// Document renders the query as an opaque document suitable for embedding
// in a usage record.
func (q Query) Document() bson.M {
	params := bson.M{}
	for name, value := range q.Params {
		params[name] = value
	}
	return bson.M{
		"targetCollection": q.TargetCollection,
		"params":           params,
		"offset":           q.Offset,
		"resultLimit":      q.ResultLimit,
	}
}
