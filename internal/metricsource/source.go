// Package metricsource fetches the referring-domains count for a resolved
// target scope from the SEO data provider. All upstream shape handling lives
// here so the recommendation logic never sees provider payloads.
package metricsource

import (
	"context"
	"errors"

	"github.com/linkplanhq/linkplan/internal/target"
)

// ErrMetricNotFound is returned when an upstream payload carries no usable
// referring-domains value.
var ErrMetricNotFound = errors.New("referring domains metric not found in upstream payload")

// Source fetches a single referring-domains count per canonical target.
type Source interface {
	FetchReferringDomains(ctx context.Context, scope target.Scope) (float64, error)
	Name() string
}
