package core

import (
	"fmt"
	"strings"
)

const (
	weekdayLetters = "MTWRFSU"
	periodSymbols  = "123456789nabcd"
)

// ValidTimeCode reports whether every symbol in the compact time code belongs
// to the weekday/period alphabet. Commas and dashes separate day groups and
// are accepted as-is. The empty string is valid (time unknown).
func ValidTimeCode(code string) bool {
	for _, r := range code {
		if r == ',' || r == '-' || r == ' ' {
			continue
		}
		if strings.ContainsRune(weekdayLetters, r) || strings.ContainsRune(periodSymbols, r) {
			continue
		}
		return false
	}
	return true
}

// ValidateCourseRecord checks the structural invariants of a catalog entry.
func ValidateCourseRecord(c *CourseRecord) error {
	if c == nil {
		return ErrInvalidCourseRecord
	}
	if c.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCourseRecord, ErrEmptyCourseName)
	}
	if c.Identifier() == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCourseRecord, ErrMissingIdentifier)
	}
	if !ValidTimeCode(c.Time) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidCourseRecord, ErrInvalidTimeCode, c.Time)
	}
	return nil
}

// ValidateAttributeSet checks the schema and necessity invariants of an
// extracted attribute set. In particular an attribute with no keyword groups
// must carry necessity none.
func ValidateAttributeSet(s AttributeSet) error {
	known := make(map[string]bool, len(AttributeNames))
	for _, name := range AttributeNames {
		known[name] = true
	}
	for name, attr := range s {
		if !known[name] {
			return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
		}
		switch attr.Necessity {
		case NecessityRequired, NecessityOptional, NecessityNone:
		default:
			return fmt.Errorf("%w: %q on %q", ErrInvalidNecessity, attr.Necessity, name)
		}
		if len(nonEmptyGroups(attr.Groups)) == 0 && attr.Necessity != NecessityNone {
			return fmt.Errorf("%w: %q", ErrNecessityWithoutKeywords, name)
		}
	}
	return nil
}

// NormalizeAttributeSet fills in missing schema attributes, drops unknown
// ones, removes empty keyword groups, and downgrades keyword-less attributes
// to necessity none so the set always satisfies ValidateAttributeSet.
func NormalizeAttributeSet(s AttributeSet) AttributeSet {
	out := NewAttributeSet()
	for _, name := range AttributeNames {
		attr, ok := s[name]
		if !ok {
			continue
		}
		groups := nonEmptyGroups(attr.Groups)
		necessity := attr.Necessity
		switch necessity {
		case NecessityRequired, NecessityOptional:
		default:
			necessity = NecessityNone
		}
		if len(groups) == 0 {
			necessity = NecessityNone
			groups = nil
		}
		out[name] = Attribute{Necessity: necessity, Groups: groups}
	}
	return out
}

func nonEmptyGroups(groups [][]string) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		kept := make([]string, 0, len(g))
		for _, kw := range g {
			if strings.TrimSpace(kw) != "" {
				kept = append(kept, kw)
			}
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
	}
	return out
}
