package market

import (
	"strings"

	"market-dashboard/internal/models"
)

// Level is one tier of the three-level industry classification.
type Level int

const (
	LevelMajor Level = iota
	LevelMid
	LevelMinor
)

func (l Level) String() string {
	switch l {
	case LevelMajor:
		return "major"
	case LevelMid:
		return "mid"
	case LevelMinor:
		return "minor"
	default:
		return "unknown"
	}
}

// Field returns the record's label at this level.
func (l Level) Field(r models.CommerceRecord) string {
	switch l {
	case LevelMajor:
		return r.IndustryMajor
	case LevelMid:
		return r.IndustryMid
	case LevelMinor:
		return r.IndustryMinor
	default:
		return ""
	}
}

type Constraint struct {
	Level Level  `json:"level"`
	Value string `json:"value"`
}

// IndustryFilter is an ordered conjunction of level constraints, coarsest
// first. The zero value matches every record.
type IndustryFilter struct {
	constraints []Constraint
}

// NewIndustryFilter keeps only the non-blank levels.
func NewIndustryFilter(major, mid, minor string) IndustryFilter {
	var f IndustryFilter
	for level, value := range []string{major, mid, minor} {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		f.constraints = append(f.constraints, Constraint{Level: Level(level), Value: value})
	}
	return f
}

func (f IndustryFilter) Empty() bool {
	return len(f.constraints) == 0
}

func (f IndustryFilter) Constraints() []Constraint {
	return append([]Constraint(nil), f.constraints...)
}

func (f IndustryFilter) Matches(r models.CommerceRecord) bool {
	for _, c := range f.constraints {
		if c.Level.Field(r) != c.Value {
			return false
		}
	}
	return true
}

// MostSpecific returns the finest constrained level; ok is false for an
// empty filter.
func (f IndustryFilter) MostSpecific() (Constraint, bool) {
	if len(f.constraints) == 0 {
		return Constraint{}, false
	}
	return f.constraints[len(f.constraints)-1], true
}

// Label joins the constrained values for display, coarsest first.
func (f IndustryFilter) Label() string {
	parts := make([]string, len(f.constraints))
	for i, c := range f.constraints {
		parts[i] = c.Value
	}
	return strings.Join(parts, " > ")
}
