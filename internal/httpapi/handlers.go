package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sampottinger/co-opencampaigndata/internal/accounts"
	"github.com/sampottinger/co-opencampaigndata/internal/gateway"
	"github.com/sampottinger/co-opencampaigndata/internal/models"
	"github.com/sampottinger/co-opencampaigndata/internal/query"
)

type handler struct {
	svc QueryService
	log *logrus.Logger
}

type resourceLink struct {
	Name string `json:"name"`
	JSON string `json:"json"`
}

// GET /v1/resources — the machine-readable index of queryable resources.
func (h *handler) listResources(w http.ResponseWriter, r *http.Request) {
	resources := []resourceLink{
		{Name: query.ContributionsCollection, JSON: "/v1/contributions.json"},
		{Name: query.LoansCollection, JSON: "/v1/loans.json"},
		{Name: query.ExpendituresCollection, JSON: "/v1/expenditures.json"},
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": resources})
}

// GET /v1/{resource}.json — execute a records query for an API key.
func (h *handler) queryResource(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	resource = strings.TrimSuffix(resource, ".json")

	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.URL.Query().Get("apiKey")
	}
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "missing api key")
		return
	}

	params, err := parseParams(resource, r.URL.Query())
	if err != nil {
		// Malformed parameters are treated as a caller bug, not a 400.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	offset, limit, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := models.Query{
		TargetCollection: resource,
		Params:           params,
		Offset:           offset,
		ResultLimit:      limit,
	}

	result, err := h.svc.HandleQuery(r.Context(), apiKey, q)
	if err != nil {
		h.writeQueryError(w, resource, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		resource:     result.Records,
		"nextOffset": result.NextOffset,
	})
}

// POST /v1/accounts — issue (or re-fetch) the API key for an email.
func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusInternalServerError, "malformed form body")
		return
	}
	email := r.FormValue("email")
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusInternalServerError, "a valid email address is required")
		return
	}

	account, err := h.svc.CreateOrFetchAccount(r.Context(), email)
	if err != nil {
		h.log.WithError(err).WithField("email", email).Error("account issuance failed")
		writeError(w, http.StatusInternalServerError, "could not issue api key")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *handler) writeQueryError(w http.ResponseWriter, resource string, err error) {
	switch {
	case errors.Is(err, accounts.ErrInvalidAPIKey):
		writeError(w, http.StatusUnauthorized, "invalid api key")
	case errors.Is(err, gateway.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "query quota exceeded, try again later")
	default:
		h.log.WithError(err).WithField("resource", resource).Error("query failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
