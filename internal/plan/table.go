package plan

import (
	"errors"
	"fmt"
)

// Tier is a recommended link-count range.
type Tier struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// OpenEnded marks a band with no upper RD bound. Only the last band of a
// table may use it.
const OpenEnded = -1

// Band maps an inclusive RD range onto a Tier.
type Band struct {
	MinRD int
	MaxRD int // inclusive upper bound, or OpenEnded
	Tier  Tier
}

// Table is an ordered, closed set of bands covering every RD value from
// zero upward. Matching is first-match-wins with inclusive upper bounds.
type Table []Band

var errBadTable = errors.New("invalid tier table")

// NewTable validates bands and returns them as a Table. Bands must start at
// zero, be contiguous and ascending, end in a single open-ended band, and
// carry tiers with 0 <= Min <= Max whose Max never decreases, so the
// resulting recommendation is a monotonic step function of RD.
func NewTable(bands []Band) (Table, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands", errBadTable)
	}
	if bands[0].MinRD != 0 {
		return nil, fmt.Errorf("%w: first band starts at %d, not 0", errBadTable, bands[0].MinRD)
	}
	prevMax := -1
	for i, b := range bands {
		if b.Tier.Min < 0 || b.Tier.Min > b.Tier.Max {
			return nil, fmt.Errorf("%w: band %d has tier min %d, max %d", errBadTable, i, b.Tier.Min, b.Tier.Max)
		}
		if b.Tier.Max < prevMax {
			return nil, fmt.Errorf("%w: band %d tier max %d below previous %d", errBadTable, i, b.Tier.Max, prevMax)
		}
		prevMax = b.Tier.Max

		last := i == len(bands)-1
		if last {
			if b.MaxRD != OpenEnded {
				return nil, fmt.Errorf("%w: last band must be open-ended", errBadTable)
			}
			continue
		}
		if b.MaxRD == OpenEnded {
			return nil, fmt.Errorf("%w: band %d is open-ended but not last", errBadTable, i)
		}
		if b.MaxRD < b.MinRD {
			return nil, fmt.Errorf("%w: band %d has max RD %d below min RD %d", errBadTable, i, b.MaxRD, b.MinRD)
		}
		if bands[i+1].MinRD != b.MaxRD+1 {
			return nil, fmt.Errorf("%w: band %d ends at %d but next starts at %d", errBadTable, i, b.MaxRD, bands[i+1].MinRD)
		}
	}
	out := make(Table, len(bands))
	copy(out, bands)
	return out, nil
}

// DefaultTable returns the standard RD-to-links table.
//
// The 21-29 band repeats the 11-20 output on purpose: the original business
// rule left that range unspecified and folding it into the lower tier is the
// conservative reading.
func DefaultTable() Table {
	return Table{
		{MinRD: 0, MaxRD: 10, Tier: Tier{Min: 5, Max: 5}},
		{MinRD: 11, MaxRD: 20, Tier: Tier{Min: 10, Max: 10}},
		{MinRD: 21, MaxRD: 29, Tier: Tier{Min: 10, Max: 10}},
		{MinRD: 30, MaxRD: 80, Tier: Tier{Min: 15, Max: 15}},
		{MinRD: 81, MaxRD: 120, Tier: Tier{Min: 20, Max: 20}},
		{MinRD: 121, MaxRD: 200, Tier: Tier{Min: 25, Max: 25}},
		{MinRD: 201, MaxRD: OpenEnded, Tier: Tier{Min: 25, Max: 50}},
	}
}

// TierFor returns the tier for an RD value. The table is assumed valid, so a
// non-negative rd always lands in some band. Fractional values fall into the
// first band whose upper bound is not exceeded, matching integer semantics
// for integer inputs.
func (t Table) TierFor(rd float64) Tier {
	for _, b := range t {
		if b.MaxRD == OpenEnded || rd <= float64(b.MaxRD) {
			return b.Tier
		}
	}
	// Unreachable for valid tables; the last band is open-ended.
	return t[len(t)-1].Tier
}
