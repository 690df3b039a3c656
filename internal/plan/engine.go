// Package plan turns a referring-domains count into a backlink purchase
// recommendation: a link-count tier plus an optional dripfeed pacing flag.
package plan

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidMetric is returned when the RD value is negative or not a
// finite number. Callers may retry the upstream fetch, but retrying the
// recommendation itself cannot change the outcome.
var ErrInvalidMetric = errors.New("invalid referring domains metric")

const (
	// dripfeedRDCeiling is the largest RD footprint that still warrants
	// slowed delivery when the caller asks for more links than the tier
	// allows.
	dripfeedRDCeiling = 20

	dripfeedRate   = "1 link every 2 days"
	dripfeedReason = "Low RD footprint but larger order requested; slower velocity reduces risk."
)

// Dripfeed is the pacing decision attached to a recommendation.
type Dripfeed struct {
	Enabled bool   `json:"enabled"`
	Rate    string `json:"rate,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Result is a complete recommendation for a single RD value.
type Result struct {
	Tier     Tier     `json:"tier"`
	Dripfeed Dripfeed `json:"dripfeed"`
	RDUsed   float64  `json:"rd_used"`
}

// Engine maps RD values through a tier table. The table can be swapped at
// runtime (operator overrides loaded from Postgres), so reads and writes are
// guarded; Recommend itself stays a pure function of its inputs and the
// current table.
type Engine struct {
	mu    sync.RWMutex
	table Table
}

// NewEngine returns an Engine using the given table.
func NewEngine(table Table) *Engine {
	return &Engine{table: table}
}

// Table returns the table currently in use.
func (e *Engine) Table() Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table
}

// SetTable atomically replaces the tier table.
func (e *Engine) SetTable(table Table) {
	e.mu.Lock()
	e.table = table
	e.mu.Unlock()
}

// Recommend maps an RD count to a link tier and dripfeed decision.
// requestedLinks is the client's desired order size; nil (or a non-positive
// value) means no preference. Dripfeed turns on only when the order exceeds
// the tier maximum while the RD footprint is still small.
func (e *Engine) Recommend(rd float64, requestedLinks *int) (Result, error) {
	if math.IsNaN(rd) || math.IsInf(rd, 0) {
		return Result{}, fmt.Errorf("%w: not a finite number", ErrInvalidMetric)
	}
	if rd < 0 {
		return Result{}, fmt.Errorf("%w: negative value %g", ErrInvalidMetric, rd)
	}

	e.mu.RLock()
	tier := e.table.TierFor(rd)
	e.mu.RUnlock()

	res := Result{Tier: tier, RDUsed: rd}
	if requestedLinks != nil && *requestedLinks > 0 && *requestedLinks > tier.Max && rd <= dripfeedRDCeiling {
		res.Dripfeed = Dripfeed{
			Enabled: true,
			Rate:    dripfeedRate,
			Reason:  dripfeedReason,
		}
	}
	return res, nil
}
