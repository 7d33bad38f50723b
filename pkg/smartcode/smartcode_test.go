package smartcode

import (
	"errors"
	"testing"

	"github.com/heraerp/hera-engine/pkg/apperrors"
)

func TestParse_ValidCodes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		root    string
		nSegs   int
		version int
	}{
		{
			name:    "five segments furniture product",
			input:   "HERA.FURNITURE.PRODUCT.CHAIR.v1",
			root:    "HERA",
			nSegs:   3,
			version: 1,
		},
		{
			name:    "six segments executive chair",
			input:   "HERA.FURNITURE.PRODUCT.CHAIR.EXECUTIVE.v1",
			root:    "HERA",
			nSegs:   4,
			version: 1,
		},
		{
			name:    "underscores in segments",
			input:   "HERA.SEC.ROLE.ORG_OWNER.ASSIGNMENT.v2",
			root:    "HERA",
			nSegs:   4,
			version: 2,
		},
		{
			name:    "nine segments at the cap",
			input:   "HERA.A1.B2.C3.D4.E5.F6.G7.v10",
			root:    "HERA",
			nSegs:   7,
			version: 10,
		},
		{
			name:    "numeric root tag",
			input:   "ACME2.SALES.ORDER.LINE.v3",
			root:    "ACME2",
			nSegs:   3,
			version: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if parsed.Root != tt.root {
				t.Errorf("root = %q, want %q", parsed.Root, tt.root)
			}
			if len(parsed.Segments) != tt.nSegs {
				t.Errorf("segments = %d, want %d", len(parsed.Segments), tt.nSegs)
			}
			if parsed.Version != tt.version {
				t.Errorf("version = %d, want %d", parsed.Version, tt.version)
			}
			// Round trip: the canonical form of a valid code is the code itself.
			if parsed.String() != tt.input {
				t.Errorf("String() = %q, want %q", parsed.String(), tt.input)
			}
		})
	}
}

func TestParse_InvalidCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "lowercase segments", input: "hera.furniture.product.chair.v1"},
		{name: "too few segments", input: "HERA.AB.v1"},
		{name: "four segments still too few", input: "HERA.CRM.CUSTOMER.v1"},
		{name: "too many segments", input: "HERA.A1.B2.C3.D4.E5.F6.G7.H8.v1"},
		{name: "root too short", input: "HE.CRM.CUSTOMER.PROFILE.v1"},
		{name: "root too long", input: "ABCDEFGHIJKLMNOP.CRM.CUSTOMER.PROFILE.v1"},
		{name: "root with underscore", input: "HERA_X.CRM.CUSTOMER.PROFILE.v1"},
		{name: "segment of one character", input: "HERA.C.CUSTOMER.PROFILE.v1"},
		{name: "missing version marker", input: "HERA.CRM.CUSTOMER.PROFILE.ENT"},
		{name: "version zero", input: "HERA.CRM.CUSTOMER.PROFILE.v0"},
		{name: "negative version", input: "HERA.CRM.CUSTOMER.PROFILE.v-1"},
		{name: "uppercase version marker", input: "HERA.CRM.CUSTOMER.PROFILE.V1"},
		{name: "version with leading zero", input: "HERA.CRM.CUSTOMER.PROFILE.v01"},
		{name: "mixed case segment", input: "HERA.CRM.Customer.PROFILE.v1"},
		{name: "empty segment from double dot", input: "HERA..CUSTOMER.PROFILE.v1"},
		{name: "trailing dot", input: "HERA.CRM.CUSTOMER.PROFILE.v1."},
		{name: "whitespace in segment", input: "HERA.CRM.CUST OMER.PROFILE.v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want validation error", tt.input)
			}
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("Parse(%q) error = %v, want wrapped ErrValidation", tt.input, err)
			}
		})
	}
}

func TestValidate_Pure(t *testing.T) {
	const code = "HERA.SALON.SVC.HAIRCUT.STANDARD.v1"
	first := Validate(code)
	for i := 0; i < 100; i++ {
		if got := Validate(code); (got == nil) != (first == nil) {
			t.Fatalf("Validate(%q) changed result on call %d", code, i)
		}
	}
}
