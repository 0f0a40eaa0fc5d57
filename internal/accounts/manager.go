// Package accounts holds the identity and quota business logic layered in
// front of the account store: get-or-create by email, collision-free API
// key issuance, the sliding-window throttle, and usage-log retention.
package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sampottinger/co-opencampaigndata/internal/models"
	"github.com/sampottinger/co-opencampaigndata/internal/storage"
)

// ErrInvalidAPIKey is returned when a presented API key matches no
// account. It is deliberately distinct from store failures.
var ErrInvalidAPIKey = errors.New("invalid api key")

// Store is the persistence surface the manager needs. Implemented by
// storage.AccountRepository.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Account, error)
	Put(ctx context.Context, account *models.Account) error
	ReportUsage(ctx context.Context, apiKey string, query bson.M, errMsg *string) (*models.UsageRecord, error)
	FindAPIKeyUsage(ctx context.Context, apiKey string, start, end time.Time) ([]models.UsageRecord, error)
	RemoveOldUsage(ctx context.Context, apiKey string, before time.Time, removeErrors bool) (int64, error)
}

// Config holds the throttling, retention, and key-shape settings.
type Config struct {
	// MaxQueries is the number of queries allowed per Window.
	MaxQueries int

	// Window is the trailing interval the throttle counts usage over.
	Window time.Duration

	// Retention is how long error-free usage records are kept.
	Retention time.Duration

	// KeyLength and KeyAlphabet define the shape of issued API keys.
	KeyLength   int
	KeyAlphabet string
}

// Manager implements account issuance and quota enforcement.
type Manager struct {
	store Store
	cfg   Config
	log   *logrus.Logger
	now   func() time.Time
}

// NewManager wires a manager over the given store.
func NewManager(store Store, cfg Config, log *logrus.Logger) *Manager {
	return &Manager{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// GetOrCreateByEmail returns the account registered under email, creating
// one with a fresh API key and typical_user permissions when none exists.
// Concurrent creates for the same email are not serialized; the unique
// email index makes the stored record converge (last write wins).
func (m *Manager) GetOrCreateByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := m.store.FindByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		return nil, fmt.Errorf("look up account for %s: %w", email, err)
	}

	apiKey, err := m.generateUniqueAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	account = &models.Account{
		Email:       email,
		APIKey:      apiKey,
		Permissions: models.TypicalUser,
	}
	if err := m.store.Put(ctx, account); err != nil {
		return nil, fmt.Errorf("create account for %s: %w", email, err)
	}
	m.log.WithField("email", email).Info("created new account")
	return account, nil
}

// LookupByAPIKey resolves an inbound API key to its account, or
// ErrInvalidAPIKey on a miss.
func (m *Manager) LookupByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	account, err := m.store.FindByAPIKey(ctx, apiKey)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("look up account by api key: %w", err)
	}
	return account, nil
}

// CanFulfillQuery reports whether the account is under its query quota.
// The count is recomputed from persisted usage records on every call over
// the half-open window [now-Window, now), so it holds across restarts and
// across server instances sharing the usage store. Concurrent requests on
// one key can each pass the check before either logs usage; that race is
// an accepted property of the read-then-act design.
func (m *Manager) CanFulfillQuery(ctx context.Context, account *models.Account) (bool, error) {
	end := m.now().UTC()
	start := end.Add(-m.cfg.Window)

	records, err := m.store.FindAPIKeyUsage(ctx, account.APIKey, start, end)
	if err != nil {
		return false, fmt.Errorf("check query quota: %w", err)
	}
	return len(records) < m.cfg.MaxQueries, nil
}

// UpdateAccountLog records one query execution for the account and then
// prunes error-free usage records older than the retention window. The
// write always happens before the prune, and a prune failure never undoes
// the write nor fails the caller's request.
func (m *Manager) UpdateAccountLog(ctx context.Context, account *models.Account, queryDoc bson.M, errMsg *string) error {
	if _, err := m.store.ReportUsage(ctx, account.APIKey, queryDoc, errMsg); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	cutoff := m.now().UTC().Add(-m.cfg.Retention)
	if _, err := m.store.RemoveOldUsage(ctx, account.APIKey, cutoff, false); err != nil {
		m.log.WithError(err).WithField("apiKey", account.APIKey).
			Warn("failed to prune old usage records")
	}
	return nil
}

// generateUniqueAPIKey draws fixed-length random tokens until one is not
// already assigned. The keyspace dwarfs the account count, so the
// rejection loop terminates almost immediately in practice.
func (m *Manager) generateUniqueAPIKey(ctx context.Context) (string, error) {
	for {
		candidate, err := m.randomKey()
		if err != nil {
			return "", err
		}

		_, err = m.store.FindByAPIKey(ctx, candidate)
		if errors.Is(err, storage.ErrAccountNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check api key collision: %w", err)
		}
		// Collision: discard and redraw.
	}
}

func (m *Manager) randomKey() (string, error) {
	alphabet := m.cfg.KeyAlphabet
	max := big.NewInt(int64(len(alphabet)))
	key := make([]byte, m.cfg.KeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw api key randomness: %w", err)
		}
		key[i] = alphabet[n.Int64()]
	}
	return string(key), nil
}
