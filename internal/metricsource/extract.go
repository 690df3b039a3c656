package metricsource

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// The provider's response shape is not stable: the RD count has been seen
// under several names and nesting levels depending on endpoint and API
// version. Known locations are probed first; a bounded deep scan is the
// fallback.
var rdPaths = []string{
	"metrics.refdomains",
	"metrics.referring_domains",
	"refdomains",
	"referring_domains",
	"referringDomains",
	"domain.refdomains",
	"stats.refdomains",
	"data.metrics.refdomains",
}

const maxScanDepth = 6

// ExtractReferringDomains pulls a referring-domains count out of a raw
// upstream JSON payload. It returns ErrMetricNotFound when no non-negative
// numeric candidate exists anywhere the probe reaches.
func ExtractReferringDomains(payload string) (float64, error) {
	if !gjson.Valid(payload) {
		return 0, fmt.Errorf("%w: payload is not valid JSON", ErrMetricNotFound)
	}
	root := gjson.Parse(payload)

	for _, path := range rdPaths {
		if v := root.Get(path); v.Exists() {
			if rd, ok := numericValue(v); ok {
				return rd, nil
			}
		}
	}

	if rd, ok := deepScan(root, 0); ok {
		return rd, nil
	}
	return 0, ErrMetricNotFound
}

// numericValue accepts JSON numbers and numeric strings (the API has
// returned both, including thousands separators), rejecting anything
// negative or non-finite.
func numericValue(v gjson.Result) (float64, bool) {
	var rd float64
	switch v.Type {
	case gjson.Number:
		rd = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(v.Str, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		rd = parsed
	default:
		return 0, false
	}
	if rd < 0 || math.IsNaN(rd) || math.IsInf(rd, 0) {
		return 0, false
	}
	return rd, true
}

// deepScan walks objects and arrays looking for a key that names a
// referring-domains count, stopping at the first match.
func deepScan(v gjson.Result, depth int) (float64, bool) {
	if depth > maxScanDepth {
		return 0, false
	}

	var (
		rd    float64
		found bool
	)
	v.ForEach(func(key, value gjson.Result) bool {
		if key.Type == gjson.String && rdKey(key.Str) {
			if n, ok := numericValue(value); ok {
				rd, found = n, true
				return false
			}
		}
		if value.IsObject() || value.IsArray() {
			if n, ok := deepScan(value, depth+1); ok {
				rd, found = n, true
				return false
			}
		}
		return true
	})
	return rd, found
}

// rdKey matches key spellings like refdomains, ref_domains, RefDomains,
// referring-domains and referringDomains.
func rdKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, "-", "")
	return strings.Contains(k, "refdomain") || strings.Contains(k, "referringdomain")
}
