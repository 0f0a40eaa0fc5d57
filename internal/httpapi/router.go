// Package httpapi is the thin HTTP boundary over the gateway service. It
// parses raw string query parameters into typed values using a static
// per-resource table, hands the typed query to the core, and maps core
// errors onto status codes. Routing stays on the standard library mux;
// everything interesting happens below this package.
package httpapi

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sampottinger/co-opencampaigndata/internal/gateway"
	"github.com/sampottinger/co-opencampaigndata/internal/models"
)

// QueryService is the slice of the gateway the HTTP layer drives.
type QueryService interface {
	HandleQuery(ctx context.Context, apiKey string, q models.Query) (*gateway.QueryResult, error)
	CreateOrFetchAccount(ctx context.Context, email string) (*models.Account, error)
}

// NewRouter builds the service mux.
func NewRouter(svc QueryService, log *logrus.Logger) *http.ServeMux {
	h := &handler{svc: svc, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/resources", h.listResources)
	mux.HandleFunc("GET /v1/{resource}", h.queryResource)
	mux.HandleFunc("POST /v1/accounts", h.createAccount)
	return mux
}
