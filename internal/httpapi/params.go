package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ParamType describes how a raw string query parameter is typed before it
// reaches the core.
type ParamType int

const (
	ParamString ParamType = iota
	ParamInt
	ParamFloat
	ParamDate
)

// Parameter names reserved for pagination rather than record filters.
var reservedParams = map[string]bool{
	"offset": true,
	"limit":  true,
	"apiKey": true,
	"format": true,
}

// paramTypes is the static per-resource typing table. It intentionally
// mirrors the query whitelist: a parameter typed here but rejected by the
// translator is still a caller bug.
var paramTypes = map[string]map[string]ParamType{
	"contributions": {
		"committeeID":      ParamInt,
		"firstName":        ParamString,
		"lastName":         ParamString,
		"contributionType": ParamString,
		"minAmount":        ParamFloat,
		"maxAmount":        ParamFloat,
		"minDate":          ParamDate,
		"maxDate":          ParamDate,
	},
	"loans": {
		"committeeID": ParamInt,
		"lastName":    ParamString,
		"loanSource":  ParamString,
		"minAmount":   ParamFloat,
		"maxAmount":   ParamFloat,
		"minDate":     ParamDate,
		"maxDate":     ParamDate,
	},
	"expenditures": {
		"committeeID":     ParamInt,
		"lastName":        ParamString,
		"expenditureType": ParamString,
		"minAmount":       ParamFloat,
		"maxAmount":       ParamFloat,
		"minDate":         ParamDate,
		"maxDate":         ParamDate,
	},
}

// parseParams types the raw query values for resource. Parameters with no
// table entry pass through as strings so the translator's whitelist stays
// the single authority on what is queryable.
func parseParams(resource string, raw url.Values) (map[string]interface{}, error) {
	table := paramTypes[strings.ToLower(resource)]

	params := map[string]interface{}{}
	for name, values := range raw {
		if reservedParams[name] || len(values) == 0 {
			continue
		}
		value := values[0]

		switch table[name] {
		case ParamInt:
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not an integer", name, value)
			}
			params[name] = parsed
		case ParamFloat:
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a number", name, value)
			}
			params[name] = parsed
		case ParamDate:
			parsed, err := time.Parse("2006-01-02", value)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %q is not a date (want YYYY-MM-DD)", name, value)
			}
			params[name] = parsed
		default:
			params[name] = value
		}
	}
	return params, nil
}

// parsePagination reads offset/limit, leaving zero values for the core's
// defaulting and clamping to apply.
func parsePagination(raw url.Values) (offset, limit int64, err error) {
	if v := raw.Get("offset"); v != "" {
		offset, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parameter offset: %q is not an integer", v)
		}
	}
	if v := raw.Get("limit"); v != "" {
		limit, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parameter limit: %q is not an integer", v)
		}
	}
	return offset, limit, nil
}
