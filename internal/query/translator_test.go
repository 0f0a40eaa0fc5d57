package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sampottinger/co-opencampaigndata/internal/models"
)

var testLimits = Limits{DefaultLimit: 50, MaxLimit: 500}

func testWhitelist() Whitelist {
	return Whitelist{
		"test_collection": {
			"minAmount": {DBField: "amount", QueryOp: "$gte"},
			"maxAmount": {DBField: "amount", QueryOp: "$lte"},
			"amount":    {DBField: "amount"},
			"name":      {DBField: "name"},
		},
	}
}

func TestTranslate_MergesOperatorsOnSharedField(t *testing.T) {
	q := models.Query{
		TargetCollection: "test_collection",
		Params: map[string]interface{}{
			"minAmount": 1,
			"maxAmount": 5000,
		},
	}

	selector, page, err := Translate(q, testWhitelist(), testLimits)
	require.NoError(t, err)

	assert.Equal(t, bson.M{"amount": bson.M{"$gte": 1, "$lte": 5000}}, selector)
	assert.Equal(t, Page{Skip: 0, Limit: 50}, page)
}

func TestTranslate_EqualityAssignsRawValue(t *testing.T) {
	q := models.Query{
		TargetCollection: "test_collection",
		Params:           map[string]interface{}{"name": "Test Name"},
	}

	selector, _, err := Translate(q, testWhitelist(), testLimits)
	require.NoError(t, err)

	assert.Equal(t, bson.M{"name": "Test Name"}, selector,
		"equality must not be wrapped in an operator document")
}

func TestTranslate_EqualityIsExclusiveForItsField(t *testing.T) {
	// "amount" (equality) and "minAmount" ($gte on amount) both target the
	// amount field; equality owns the field regardless of map iteration
	// order.
	q := models.Query{
		TargetCollection: "test_collection",
		Params: map[string]interface{}{
			"amount":    250,
			"minAmount": 1,
		},
	}

	selector, _, err := Translate(q, testWhitelist(), testLimits)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"amount": 250}, selector)
}

func TestTranslate_CollectionNameIsLowercased(t *testing.T) {
	q := models.Query{
		TargetCollection: "Test_Collection",
		Params:           map[string]interface{}{"name": "x"},
	}

	_, _, err := Translate(q, testWhitelist(), testLimits)
	assert.NoError(t, err)
}

func TestTranslate_UnknownCollection(t *testing.T) {
	q := models.Query{TargetCollection: "not_a_real_collection"}

	_, _, err := Translate(q, testWhitelist(), testLimits)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestTranslate_UnknownField(t *testing.T) {
	q := models.Query{
		TargetCollection: "test_collection",
		Params:           map[string]interface{}{"ssn": "123"},
	}

	_, _, err := Translate(q, testWhitelist(), testLimits)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestTranslate_PaginationClamping(t *testing.T) {
	tests := []struct {
		name     string
		offset   int64
		limit    int64
		expected Page
	}{
		{"defaults", 0, 0, Page{Skip: 0, Limit: 50}},
		{"negative offset resets to zero", -5, 0, Page{Skip: 0, Limit: 50}},
		{"explicit values pass through", 100, 51, Page{Skip: 100, Limit: 51}},
		{"limit capped at max", 0, 10000, Page{Skip: 0, Limit: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := models.Query{
				TargetCollection: "test_collection",
				Offset:           tt.offset,
				ResultLimit:      tt.limit,
			}
			_, page, err := Translate(q, testWhitelist(), testLimits)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page)
		})
	}
}

func TestDefaultWhitelist_RangeParamsShareDBField(t *testing.T) {
	wl := DefaultWhitelist()
	for _, collection := range []string{ContributionsCollection, LoansCollection, ExpendituresCollection} {
		fields, ok := wl[collection]
		require.True(t, ok, collection)
		assert.Equal(t, fields["minAmount"].DBField, fields["maxAmount"].DBField)
		assert.Equal(t, "$gte", fields["minAmount"].QueryOp)
		assert.Equal(t, "$lte", fields["maxAmount"].QueryOp)
	}
}
