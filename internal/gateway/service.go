// Package gateway ties the core together for the two boundary operations:
// fulfilling a records query for an API key, and issuing or fetching an
// account for an email address. Within one request the flow is strictly
// sequential: credential lookup, throttle check, query execution, usage
// logging.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sampottinger/co-opencampaigndata/internal/models"
)

// ErrQuotaExceeded is the defined negative result of the throttle check.
var ErrQuotaExceeded = errors.New("query quota exceeded")

// AccountManager covers the identity and quota operations the gateway
// drives. Implemented by accounts.Manager.
type AccountManager interface {
	GetOrCreateByEmail(ctx context.Context, email string) (*models.Account, error)
	LookupByAPIKey(ctx context.Context, apiKey string) (*models.Account, error)
	CanFulfillQuery(ctx context.Context, account *models.Account) (bool, error)
	UpdateAccountLog(ctx context.Context, account *models.Account, queryDoc bson.M, errMsg *string) error
}

// QueryExecutor runs a translated query. Implemented by tracer.Service.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, q models.Query) ([]bson.M, error)
}

// QueryResult is a fulfilled query: the normalized records plus the offset
// at which the next page starts.
type QueryResult struct {
	Records    []bson.M
	NextOffset int64
}

// Service orchestrates one request's lifecycle.
type Service struct {
	accounts AccountManager
	records  QueryExecutor
	log      *logrus.Logger
}

// NewService wires the gateway over the account manager and record query
// executor.
func NewService(accounts AccountManager, records QueryExecutor, log *logrus.Logger) *Service {
	return &Service{accounts: accounts, records: records, log: log}
}

// HandleQuery fulfills q for the caller holding apiKey. Every outcome
// after a successful credential lookup is logged to the usage store,
// including throttled and failed requests, so the sliding-window quota
// sees them.
func (s *Service) HandleQuery(ctx context.Context, apiKey string, q models.Query) (*QueryResult, error) {
	// The store reads from position zero for a negative offset; NextOffset
	// has to agree with that.
	if q.Offset < 0 {
		q.Offset = 0
	}

	account, err := s.accounts.LookupByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	allowed, err := s.accounts.CanFulfillQuery(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("throttle check for %s: %w", account.Email, err)
	}

	queryDoc := q.Document()
	if !allowed {
		s.logUsage(ctx, account, queryDoc, ErrQuotaExceeded.Error())
		return nil, ErrQuotaExceeded
	}

	records, err := s.records.ExecuteQuery(ctx, q)
	if err != nil {
		s.logUsage(ctx, account, queryDoc, err.Error())
		return nil, err
	}

	s.logUsage(ctx, account, queryDoc, "")
	return &QueryResult{
		Records:    records,
		NextOffset: q.Offset + int64(len(records)),
	}, nil
}

// CreateOrFetchAccount serves the key-issuance endpoint.
func (s *Service) CreateOrFetchAccount(ctx context.Context, email string) (*models.Account, error) {
	return s.accounts.GetOrCreateByEmail(ctx, email)
}

// logUsage records the request outcome. The caller's response is already
// determined at this point, so a logging failure is surfaced to the log
// only.
func (s *Service) logUsage(ctx context.Context, account *models.Account, queryDoc bson.M, errMsg string) {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	if err := s.accounts.UpdateAccountLog(ctx, account, queryDoc, msg); err != nil {
		s.log.WithError(err).WithField("email", account.Email).
			Warn("failed to record query usage")
	}
}
