// Package smartcode validates and parses smart codes: the hierarchical,
// versioned string tags attached to every entity, dynamic field, relationship
// and transaction in the universal schema. A smart code encodes business
// meaning and schema version, e.g.
//
//	HERA.FURNITURE.PRODUCT.CHAIR.EXECUTIVE.v1
//
// The package is pure: validation has no side effects and identical input
// always yields an identical result. Every write path in every engine must
// validate before persisting; codes are case-sensitive and never normalized.
package smartcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/heraerp/hera-engine/pkg/apperrors"
)

// Grammar limits. A code is ROOT.SEG...SEG.vN with 5 to 9 dot-separated
// segments total: the root tag, 3 to 8 domain segments, and the version.
const (
	MinSegments = 5
	MaxSegments = 9
)

var (
	rootPattern    = regexp.MustCompile(`^[A-Z0-9]{3,15}$`)
	segmentPattern = regexp.MustCompile(`^[A-Z0-9_]{2,30}$`)
	versionPattern = regexp.MustCompile(`^v([1-9][0-9]*)$`)
)

// ParsedCode is the decomposed form of a valid smart code.
type ParsedCode struct {
	Root     string   // fixed root tag, e.g. "HERA"
	Segments []string // domain segments between root and version
	Version  int      // positive schema version from the trailing vN
}

// String reassembles the canonical code.
func (p ParsedCode) String() string {
	return p.Root + "." + strings.Join(p.Segments, ".") + ".v" + strconv.Itoa(p.Version)
}

// Parse validates code against the grammar and returns its parts. All
// failures wrap apperrors.ErrValidation.
func Parse(code string) (ParsedCode, error) {
	if code == "" {
		return ParsedCode{}, apperrors.NewValidation("smart_code", "code is empty")
	}
	parts := strings.Split(code, ".")
	if len(parts) < MinSegments || len(parts) > MaxSegments {
		return ParsedCode{}, apperrors.NewValidation("smart_code",
			fmt.Sprintf("code %q has %d segments, want %d to %d", code, len(parts), MinSegments, MaxSegments))
	}

	root := parts[0]
	if !rootPattern.MatchString(root) {
		return ParsedCode{}, apperrors.NewValidation("smart_code",
			fmt.Sprintf("root segment %q must be 3-15 uppercase alphanumeric characters", root))
	}

	middle := parts[1 : len(parts)-1]
	for i, seg := range middle {
		if !segmentPattern.MatchString(seg) {
			return ParsedCode{}, apperrors.NewValidation("smart_code",
				fmt.Sprintf("segment %d (%q) must be 2-30 uppercase alphanumeric/underscore characters", i+2, seg))
		}
	}

	last := parts[len(parts)-1]
	m := versionPattern.FindStringSubmatch(last)
	if m == nil {
		return ParsedCode{}, apperrors.NewValidation("smart_code",
			fmt.Sprintf("final segment %q must be a version marker like v1", last))
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedCode{}, apperrors.NewValidation("smart_code",
			fmt.Sprintf("version in %q out of range", last))
	}

	return ParsedCode{Root: root, Segments: middle, Version: version}, nil
}

// Validate checks code against the grammar without returning the parts.
func Validate(code string) error {
	_, err := Parse(code)
	return err
}
