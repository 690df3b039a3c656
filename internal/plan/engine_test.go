package plan

import (
	"errors"
	"math"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultTable())
}

func intPtr(v int) *int { return &v }

func TestRecommend_TierBoundaries(t *testing.T) {
	e := newTestEngine(t)

	cases := []struct {
		rd   float64
		want Tier
	}{
		{0, Tier{5, 5}},
		{10, Tier{5, 5}},
		{11, Tier{10, 10}},
		{20, Tier{10, 10}},
		{21, Tier{10, 10}},
		{29, Tier{10, 10}},
		{30, Tier{15, 15}},
		{80, Tier{15, 15}},
		{81, Tier{20, 20}},
		{120, Tier{20, 20}},
		{121, Tier{25, 25}},
		{200, Tier{25, 25}},
		{201, Tier{25, 50}},
		{100000, Tier{25, 50}},
	}
	for _, tc := range cases {
		res, err := e.Recommend(tc.rd, nil)
		if err != nil {
			t.Fatalf("Recommend(%g): %v", tc.rd, err)
		}
		if res.Tier != tc.want {
			t.Errorf("Recommend(%g): tier = %+v, want %+v", tc.rd, res.Tier, tc.want)
		}
		if res.RDUsed != tc.rd {
			t.Errorf("Recommend(%g): rd_used = %g", tc.rd, res.RDUsed)
		}
	}
}

func TestRecommend_FractionalRD(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Recommend(10.5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Tier != (Tier{10, 10}) {
		t.Errorf("Recommend(10.5): tier = %+v, want {10 10}", res.Tier)
	}
}

func TestRecommend_MonotonicMax(t *testing.T) {
	e := newTestEngine(t)

	prevMax := 0
	for rd := 0; rd <= 500; rd++ {
		res, err := e.Recommend(float64(rd), nil)
		if err != nil {
			t.Fatalf("Recommend(%d): %v", rd, err)
		}
		if res.Tier.Min > res.Tier.Max {
			t.Fatalf("Recommend(%d): min %d > max %d", rd, res.Tier.Min, res.Tier.Max)
		}
		if res.Tier.Max < prevMax {
			t.Fatalf("Recommend(%d): max dropped from %d to %d", rd, prevMax, res.Tier.Max)
		}
		prevMax = res.Tier.Max
	}
}

func TestRecommend_Dripfeed(t *testing.T) {
	e := newTestEngine(t)

	cases := []struct {
		name      string
		rd        float64
		requested *int
		enabled   bool
	}{
		{"small footprint larger order", 15, intPtr(20), true},
		{"order within tier", 15, intPtr(3), false},
		{"large footprint", 150, intPtr(100), false},
		{"no preference", 15, nil, false},
		{"boundary rd 20", 20, intPtr(50), true},
		{"boundary rd 21", 21, intPtr(50), false},
		{"order equals tier max", 10, intPtr(5), false},
		{"non-positive order treated as absent", 15, intPtr(0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Recommend(tc.rd, tc.requested)
			if err != nil {
				t.Fatal(err)
			}
			if res.Dripfeed.Enabled != tc.enabled {
				t.Fatalf("dripfeed enabled = %v, want %v", res.Dripfeed.Enabled, tc.enabled)
			}
			if tc.enabled && (res.Dripfeed.Rate == "" || res.Dripfeed.Reason == "") {
				t.Error("enabled dripfeed missing rate or reason")
			}
			if !tc.enabled && (res.Dripfeed.Rate != "" || res.Dripfeed.Reason != "") {
				t.Error("disabled dripfeed carries rate or reason")
			}
		})
	}
}

func TestRecommend_InvalidMetric(t *testing.T) {
	e := newTestEngine(t)

	for _, rd := range []float64{-1, -0.001, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := e.Recommend(rd, nil); !errors.Is(err, ErrInvalidMetric) {
			t.Errorf("Recommend(%g): err = %v, want ErrInvalidMetric", rd, err)
		}
	}
}

func TestSetTable_SwapsRules(t *testing.T) {
	e := newTestEngine(t)

	override, err := NewTable([]Band{
		{MinRD: 0, MaxRD: 100, Tier: Tier{Min: 1, Max: 2}},
		{MinRD: 101, MaxRD: OpenEnded, Tier: Tier{Min: 3, Max: 9}},
	})
	if err != nil {
		t.Fatal(err)
	}
	e.SetTable(override)

	res, err := e.Recommend(50, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Tier != (Tier{1, 2}) {
		t.Errorf("tier after override = %+v", res.Tier)
	}
}
