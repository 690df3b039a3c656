package metricsource

import (
	"errors"
	"testing"
)

func TestExtractReferringDomains_KnownPaths(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    float64
	}{
		{"v3 metrics shape", `{"metrics":{"refdomains":152,"backlinks":9000}}`, 152},
		{"flat refdomains", `{"refdomains":42}`, 42},
		{"snake case", `{"referring_domains":7}`, 7},
		{"camel case", `{"referringDomains":88}`, 88},
		{"nested data", `{"data":{"metrics":{"refdomains":11}}}`, 11},
		{"numeric string", `{"refdomains":"1,234"}`, 1234},
		{"fractional", `{"metrics":{"refdomains":10.5}}`, 10.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractReferringDomains(tc.payload)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("rd = %g, want %g", got, tc.want)
			}
		})
	}
}

func TestExtractReferringDomains_DeepScan(t *testing.T) {
	payload := `{"result":{"pages":[{"url":"x"}],"summary":{"domain_profile":{"ref_domains":99}}}}`
	got, err := ExtractReferringDomains(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got != 99 {
		t.Errorf("rd = %g, want 99", got)
	}
}

func TestExtractReferringDomains_ArrayElements(t *testing.T) {
	payload := `{"rows":[{"metric":"other","value":1},{"refDomains":64}]}`
	got, err := ExtractReferringDomains(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got != 64 {
		t.Errorf("rd = %g, want 64", got)
	}
}

func TestExtractReferringDomains_NotFound(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"unrelated keys", `{"backlinks":10,"rank":3}`},
		{"non-numeric value", `{"refdomains":"many"}`},
		{"negative value", `{"refdomains":-5}`},
		{"empty object", `{}`},
		{"not json", `<html>rate limited</html>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ExtractReferringDomains(tc.payload); !errors.Is(err, ErrMetricNotFound) {
				t.Errorf("err = %v, want ErrMetricNotFound", err)
			}
		})
	}
}

func TestExtractReferringDomains_PrefersKnownPathOverScan(t *testing.T) {
	payload := `{"metrics":{"refdomains":5},"debug":{"other_refdomains":9000}}`
	got, err := ExtractReferringDomains(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("rd = %g, want 5 from the known path", got)
	}
}
