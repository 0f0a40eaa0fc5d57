package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sampottinger/co-opencampaigndata/internal/models"
)

const (
	accountCollection = "accounts"
	usageCollection   = "usages"
)

// AccountRepository handles account and usage-log persistence. Business
// rules (key issuance, throttling, retention policy) live in the accounts
// package; this layer only encapsulates store operations.
type AccountRepository struct {
	resolver *Resolver
}

// NewAccountRepository creates a repository over the accounts database.
func NewAccountRepository(resolver *Resolver) *AccountRepository {
	return &AccountRepository{resolver: resolver}
}

// FindByEmail loads the account registered under email, or
// ErrAccountNotFound.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return nil, fmt.Errorf("acquire accounts connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	col := r.resolver.Collection(client, AccountsDatabase, accountCollection)
	var account models.Account
	err = col.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// FindByAPIKey loads the account assigned apiKey, or ErrAccountNotFound.
func (r *AccountRepository) FindByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return nil, fmt.Errorf("acquire accounts connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	col := r.resolver.Collection(client, AccountsDatabase, accountCollection)
	var account models.Account
	err = col.FindOne(ctx, bson.M{"apiKey": apiKey}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by api key: %w", err)
	}
	return &account, nil
}

// Put saves an account, replacing any existing record with the same email.
func (r *AccountRepository) Put(ctx context.Context, account *models.Account) error {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return fmt.Errorf("acquire accounts connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	col := r.resolver.Collection(client, AccountsDatabase, accountCollection)
	opts := options.Replace().SetUpsert(true)
	if _, err := col.ReplaceOne(ctx, bson.M{"email": account.Email}, account, opts); err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// ReportUsage appends a usage record for apiKey. errMsg is nil for a
// fulfilled request and a description of the failure otherwise.
func (r *AccountRepository) ReportUsage(ctx context.Context, apiKey string, query bson.M, errMsg *string) (*models.UsageRecord, error) {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return nil, fmt.Errorf("acquire usage connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	record := &models.UsageRecord{
		ID:        uuid.NewString(),
		APIKey:    apiKey,
		Query:     query,
		Error:     errMsg,
		CreatedOn: time.Now().UTC(),
	}

	col := r.resolver.Collection(client, AccountsDatabase, usageCollection)
	if _, err := col.InsertOne(ctx, record); err != nil {
		return nil, fmt.Errorf("report usage: %w", err)
	}
	return record, nil
}

// FindAPIKeyUsage returns usage records for apiKey with createdOn in the
// half-open range [start, end).
func (r *AccountRepository) FindAPIKeyUsage(ctx context.Context, apiKey string, start, end time.Time) ([]models.UsageRecord, error) {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return nil, fmt.Errorf("acquire usage connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	selector := bson.M{
		"apiKey":    apiKey,
		"createdOn": bson.M{"$gte": start, "$lt": end},
	}
	col := r.resolver.Collection(client, AccountsDatabase, usageCollection)
	cursor, err := col.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("find api key usage: %w", err)
	}

	var records []models.UsageRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("read api key usage: %w", err)
	}
	return records, nil
}

// RemoveOldUsage deletes usage records for apiKey older than before. When
// removeErrors is false, records that logged an error are kept for later
// inspection.
func (r *AccountRepository) RemoveOldUsage(ctx context.Context, apiKey string, before time.Time, removeErrors bool) (int64, error) {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return 0, fmt.Errorf("acquire usage connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	selector := bson.M{
		"apiKey":    apiKey,
		"createdOn": bson.M{"$lt": before},
	}
	if !removeErrors {
		selector["error"] = nil
	}

	col := r.resolver.Collection(client, AccountsDatabase, usageCollection)
	result, err := col.DeleteMany(ctx, selector)
	if err != nil {
		return 0, fmt.Errorf("remove old usage records: %w", err)
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the indexes the access patterns rely on: unique
// email and apiKey on accounts, and a compound (apiKey, createdOn) index
// on usages for window scans and retention sweeps.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	client, err := r.resolver.Acquire(ctx, AccountsDatabase)
	if err != nil {
		return fmt.Errorf("acquire accounts connection: %w", err)
	}
	defer r.resolver.Release(AccountsDatabase, client)

	accounts := r.resolver.Collection(client, AccountsDatabase, accountCollection)
	_, err = accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "apiKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}

	usages := r.resolver.Collection(client, AccountsDatabase, usageCollection)
	_, err = usages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "createdOn", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("ensure usage indexes: %w", err)
	}
	return nil
}
