package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// UsageRecord logs one query executed on behalf of an API key. Records are
// append-only; the retention sweep in the account manager is the only thing
// that deletes them. CreatedOn is authoritative for windowing and ordering.
type UsageRecord struct {
	ID        string    `bson:"_id"`
	APIKey    string    `bson:"apiKey"`
	Query     bson.M    `bson:"query"`
	Error     *string   `bson:"error"`
	CreatedOn time.Time `bson:"createdOn"`
}

// Failed reports whether the logged request ended in an error.
func (r *UsageRecord) Failed() bool {
	return r.Error != nil
}
