package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sampottinger/co-opencampaigndata/internal/accounts"
	"github.com/sampottinger/co-opencampaigndata/internal/gateway"
	"github.com/sampottinger/co-opencampaigndata/internal/models"
	"github.com/sampottinger/co-opencampaigndata/internal/query"
)

type fakeService struct {
	lastAPIKey string
	lastQuery  models.Query
	result     *gateway.QueryResult
	err        error
}

func (s *fakeService) HandleQuery(ctx context.Context, apiKey string, q models.Query) (*gateway.QueryResult, error) {
	s.lastAPIKey = apiKey
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *fakeService) CreateOrFetchAccount(ctx context.Context, email string) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Account{Email: email, APIKey: "issuedkey", Permissions: models.TypicalUser}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func doRequest(t *testing.T, svc QueryService, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := NewRouter(svc, quietLogger())
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQueryResource_Success(t *testing.T) {
	svc := &fakeService{
		result: &gateway.QueryResult{
			Records:    []bson.M{{"amount": 100.0}},
			NextOffset: 1,
		},
	}

	rec := doRequest(t, svc, http.MethodGet,
		"/v1/contributions.json?apiKey=testkey&minAmount=1&maxAmount=5000&committeeID=7&offset=10")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "testkey", svc.lastAPIKey)
	assert.Equal(t, "contributions", svc.lastQuery.TargetCollection)
	assert.Equal(t, int64(10), svc.lastQuery.Offset)

	// The typing table converts raw strings before the core sees them.
	assert.Equal(t, float64(1), svc.lastQuery.Params["minAmount"])
	assert.Equal(t, float64(5000), svc.lastQuery.Params["maxAmount"])
	assert.Equal(t, int64(7), svc.lastQuery.Params["committeeID"])

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "contributions")
	assert.EqualValues(t, 1, body["nextOffset"])
}

func TestQueryResource_APIKeyHeader(t *testing.T) {
	svc := &fakeService{result: &gateway.QueryResult{}}
	mux := NewRouter(svc, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/loans.json", nil)
	req.Header.Set("X-API-Key", "headerkey")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "headerkey", svc.lastAPIKey)
}

func TestQueryResource_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid api key", accounts.ErrInvalidAPIKey, http.StatusUnauthorized},
		{"over quota", gateway.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"unknown field is a caller bug", query.ErrUnknownField, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := doRequest(t, svc, http.MethodGet, "/v1/contributions.json?apiKey=k")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestQueryResource_MissingKey(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodGet, "/v1/contributions.json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueryResource_MalformedParamIsServerError(t *testing.T) {
	svc := &fakeService{result: &gateway.QueryResult{}}
	rec := doRequest(t, svc, http.MethodGet,
		"/v1/contributions.json?apiKey=k&minAmount=lots")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, svc.lastAPIKey, "core must not be reached with malformed params")
}

func TestParseParams_DateTyping(t *testing.T) {
	raw := url.Values{"minDate": {"2013-02-01"}}
	params, err := parseParams("contributions", raw)
	require.NoError(t, err)

	parsed, ok := params["minDate"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2013, parsed.Year())
}

func TestParseParams_ReservedNamesSkipped(t *testing.T) {
	raw := url.Values{
		"offset":   {"5"},
		"limit":    {"10"},
		"apiKey":   {"k"},
		"lastName": {"Smith"},
	}
	params, err := parseParams("contributions", raw)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"lastName": "Smith"}, params)
}

func TestCreateAccount(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/v1/accounts?email=user@test.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var account models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "user@test.com", account.Email)
	assert.Equal(t, "issuedkey", account.APIKey)
}

func TestCreateAccount_RequiresEmail(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodPost, "/v1/accounts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListResources(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodGet, "/v1/resources")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Resources []resourceLink `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Resources, 3)
}
