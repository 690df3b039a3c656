package target

import (
	"errors"
	"testing"
)

func TestResolve_Homepage(t *testing.T) {
	cases := []struct {
		name  string
		input string
		host  string
	}{
		{"bare domain", "example.com", "example.com"},
		{"www prefix", "www.example.com", "example.com"},
		{"full url with slash", "https://www.example.com/", "example.com"},
		{"http scheme", "http://example.com", "example.com"},
		{"uppercase host", "EXAMPLE.Com", "example.com"},
		{"surrounding whitespace", "  example.com  ", "example.com"},
		{"subdomain", "blog.example.com", "blog.example.com"},
		{"slash-only path", "example.com//", "example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scope, err := Resolve(tc.input)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.input, err)
			}
			if !scope.IsHomepage {
				t.Errorf("expected homepage for %q", tc.input)
			}
			if scope.Mode != ModeSubdomains {
				t.Errorf("expected subdomains mode, got %s", scope.Mode)
			}
			if scope.Hostname != tc.host {
				t.Errorf("hostname = %q, want %q", scope.Hostname, tc.host)
			}
			if scope.CanonicalTarget != tc.host {
				t.Errorf("canonical = %q, want bare hostname %q", scope.CanonicalTarget, tc.host)
			}
			if scope.InputRaw != tc.input {
				t.Errorf("input raw mutated: %q", scope.InputRaw)
			}
		})
	}
}

func TestResolve_InnerPage(t *testing.T) {
	cases := []struct {
		input     string
		canonical string
	}{
		{"example.com/pricing", "https://example.com/pricing"},
		{"https://www.example.com/pricing/", "https://example.com/pricing"},
		{"http://example.com/a/b", "http://example.com/a/b"},
		{"example.com/search?q=links", "https://example.com/search?q=links"},
		{"example.com/docs#install", "https://example.com/docs"},
		{"example.com/docs/?page=2", "https://example.com/docs?page=2"},
		{"example.com/docs//", "https://example.com/docs"},
	}

	for _, tc := range cases {
		scope, err := Resolve(tc.input)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.input, err)
		}
		if scope.IsHomepage {
			t.Errorf("Resolve(%q): expected inner page", tc.input)
		}
		if scope.Mode != ModeExact {
			t.Errorf("Resolve(%q): mode = %s, want exact", tc.input, scope.Mode)
		}
		if scope.CanonicalTarget != tc.canonical {
			t.Errorf("Resolve(%q): canonical = %q, want %q", tc.input, scope.CanonicalTarget, tc.canonical)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/pricing",
		"https://www.example.com/",
		"http://sub.example.co.uk/a?b=c",
		"https://example.com/docs//",
		"https://example.com//",
	}
	for _, in := range inputs {
		first, err := Resolve(in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", in, err)
		}
		second, err := Resolve(first.CanonicalTarget)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", first.CanonicalTarget, err)
		}
		if second.CanonicalTarget != first.CanonicalTarget {
			t.Errorf("not idempotent: %q -> %q", first.CanonicalTarget, second.CanonicalTarget)
		}
	}
}

func TestResolve_ScopeModeMatchesHomepage(t *testing.T) {
	for _, in := range []string{"example.com", "example.com/", "example.com/x", "https://a.b.example.com/deep/path"} {
		scope, err := Resolve(in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", in, err)
		}
		if (scope.Mode == ModeSubdomains) != scope.IsHomepage {
			t.Errorf("Resolve(%q): mode %s disagrees with is_homepage %v", in, scope.Mode, scope.IsHomepage)
		}
		if scope.CanonicalTarget == "" {
			t.Errorf("Resolve(%q): empty canonical target", in)
		}
	}
}

func TestResolve_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "localhost", "http://", "https://   /x", "just some words"} {
		_, err := Resolve(in)
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("Resolve(%q): err = %v, want ErrInvalidTarget", in, err)
		}
	}
}

func TestRegistrableDomain(t *testing.T) {
	scope, err := Resolve("http://deep.sub.example.co.uk/path")
	if err != nil {
		t.Fatal(err)
	}
	domain, ok := scope.RegistrableDomain()
	if !ok || domain != "example.co.uk" {
		t.Errorf("registrable domain = %q, %v; want example.co.uk, true", domain, ok)
	}
}
