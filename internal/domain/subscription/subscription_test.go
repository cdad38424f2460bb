package subscription

import (
	"strings"
	"testing"
)

func TestNewCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "trims and lowercases", raw: "  Rust  ", want: "rust"},
		{name: "empty after trim", raw: "   ", wantErr: true},
		{name: "too long", raw: strings.Repeat("a", 31), wantErr: true},
		{name: "exactly max", raw: strings.Repeat("a", 30), want: strings.Repeat("a", 30)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewCategory(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewCategory(%q) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			}
			if err == nil && got.String() != tc.want {
				t.Fatalf("NewCategory(%q) = %q, want %q", tc.raw, got.String(), tc.want)
			}
		})
	}
}

func TestRequirementOrdering(t *testing.T) {
	t.Parallel()
	if !(Must > Should && Should > May) {
		t.Fatalf("requirement ordering broken: Must=%d Should=%d May=%d", Must, Should, May)
	}
	if DefaultRequirement != May {
		t.Fatalf("default requirement = %v, want May", DefaultRequirement)
	}
}

func TestPrincipalUserID(t *testing.T) {
	t.Parallel()

	if _, ok := NewPrincipal("").UserID(); ok {
		t.Fatalf("empty principal should report ok=false")
	}
	id, ok := NewPrincipal("u1").UserID()
	if !ok || id != "u1" {
		t.Fatalf("UserID() = (%q, %v), want (u1, true)", id, ok)
	}
}
