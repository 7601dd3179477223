package core

import "fmt"

// SemanticType classifies a dataset column for chart building.
type SemanticType string

// Semantic types understood by the resolver.
const (
	SemanticNumeric     SemanticType = "numeric"
	SemanticCategorical SemanticType = "categorical"
	SemanticDatetime    SemanticType = "datetime"
)

// Schema groups a dataset's column names by semantic type.
// Order within each set follows the dataset's column order.
type Schema struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Datetime    []string `json:"datetime"`
}

// Columns returns the concatenation of the requested sets, in argument order.
func (s *Schema) Columns(types ...SemanticType) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, t := range types {
		out = append(out, s.set(t)...)
	}
	return out
}

// TypeOf returns the semantic type of a column and whether it exists.
func (s *Schema) TypeOf(column string) (SemanticType, bool) {
	if s == nil {
		return "", false
	}
	for _, t := range []SemanticType{SemanticNumeric, SemanticCategorical, SemanticDatetime} {
		for _, c := range s.set(t) {
			if c == column {
				return t, true
			}
		}
	}
	return "", false
}

// Len returns the total number of classified columns.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Numeric) + len(s.Categorical) + len(s.Datetime)
}

// Validate checks that no column appears in more than one set.
func (s *Schema) Validate() error {
	if s == nil {
		return ErrSchemaUnavailable
	}
	seen := make(map[string]SemanticType, s.Len())
	for _, t := range []SemanticType{SemanticNumeric, SemanticCategorical, SemanticDatetime} {
		for _, c := range s.set(t) {
			if prev, ok := seen[c]; ok {
				return &DuplicateColumnError{Column: c, First: prev, Second: t}
			}
			seen[c] = t
		}
	}
	return nil
}

// Options returns the columns a selector for the given role offers under a preset.
// The first entry of the result is not necessarily the resolver's default.
func (s *Schema) Options(preset Preset, role Role) []string {
	switch role {
	case RoleX:
		switch preset {
		case PresetTimeSeries:
			return s.Columns(SemanticDatetime, SemanticCategorical, SemanticNumeric)
		case PresetScatter:
			return s.Columns(SemanticNumeric)
		default:
			return s.Columns(SemanticCategorical, SemanticNumeric)
		}
	case RoleY:
		if preset == PresetHeatmap {
			return s.Columns(SemanticCategorical, SemanticNumeric)
		}
		return s.Columns(SemanticNumeric)
	case RoleCategory, RoleStage:
		return s.Columns(SemanticCategorical, SemanticNumeric)
	case RoleValue:
		return s.Columns(SemanticNumeric)
	default:
		return nil
	}
}

func (s *Schema) set(t SemanticType) []string {
	switch t {
	case SemanticNumeric:
		return s.Numeric
	case SemanticCategorical:
		return s.Categorical
	case SemanticDatetime:
		return s.Datetime
	default:
		return nil
	}
}

// DuplicateColumnError reports a column classified under two semantic types.
type DuplicateColumnError struct {
	Column string
	First  SemanticType
	Second SemanticType
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column %q is classified as both %s and %s", e.Column, e.First, e.Second)
}
