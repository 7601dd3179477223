// Package schema provides the Schema Provider: it turns a dataset id into a
// core.Schema, either by asking the visualization backend or by introspecting
// a local database through a pkg/adapter adapter.
package schema

import (
	"strings"

	"github.com/leapstack-labs/leapviz/pkg/adapter"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "INTEGER": true, "INT": true, "BIGINT": true, "HUGEINT": true,
	"UTINYINT": true, "USMALLINT": true, "UINTEGER": true, "UBIGINT": true, "UHUGEINT": true,
	"INT1": true, "INT2": true, "INT4": true, "INT8": true,
	"SMALLSERIAL": true, "SERIAL": true, "BIGSERIAL": true,
	"FLOAT": true, "FLOAT4": true, "FLOAT8": true, "REAL": true, "DOUBLE": true, "DOUBLE PRECISION": true,
	"DECIMAL": true, "NUMERIC": true, "MONEY": true,
}

var datetimeTypes = map[string]bool{
	"DATE": true, "DATETIME": true,
	"TIMESTAMP": true, "TIMESTAMPTZ": true,
	"TIMESTAMP_S": true, "TIMESTAMP_MS": true, "TIMESTAMP_NS": true,
	"TIMESTAMP WITH TIME ZONE": true, "TIMESTAMP WITHOUT TIME ZONE": true,
}

var categoricalTypes = map[string]bool{
	"VARCHAR": true, "TEXT": true, "STRING": true, "CHAR": true, "BPCHAR": true, "NAME": true,
	"CHARACTER": true, "CHARACTER VARYING": true,
	"BOOLEAN": true, "BOOL": true, "LOGICAL": true,
	"UUID": true, "ENUM": true, "USER-DEFINED": true,
	"TIME": true, "TIME WITH TIME ZONE": true, "TIME WITHOUT TIME ZONE": true,
}

// TypeFor maps a database column type to a semantic type.
// Booleans and times of day are categorical. Nested, binary and
// unrecognized types report false and are left out of the schema.
func TypeFor(dbType string) (core.SemanticType, bool) {
	t := normalizeType(dbType)
	switch {
	case t == "":
		return "", false
	case strings.HasSuffix(t, "]"):
		return "", false
	case numericTypes[t]:
		return core.SemanticNumeric, true
	case datetimeTypes[t]:
		return core.SemanticDatetime, true
	case categoricalTypes[t]:
		return core.SemanticCategorical, true
	}
	return "", false
}

// normalizeType upper-cases a type name and drops its parameters:
// "decimal(10, 2)" becomes "DECIMAL".
func normalizeType(dbType string) string {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		rest := ""
		if j := strings.LastIndexByte(t, ')'); j > i {
			rest = t[j+1:]
		}
		t = strings.TrimSpace(t[:i]) + rest
	}
	return strings.Join(strings.Fields(t), " ")
}

// Classify groups columns by semantic type, keeping their order.
func Classify(columns []adapter.Column) *core.Schema {
	s := &core.Schema{
		Numeric:     []string{},
		Categorical: []string{},
		Datetime:    []string{},
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.Name] {
			continue
		}
		st, ok := TypeFor(c.Type)
		if !ok {
			continue
		}
		seen[c.Name] = true
		switch st {
		case core.SemanticNumeric:
			s.Numeric = append(s.Numeric, c.Name)
		case core.SemanticDatetime:
			s.Datetime = append(s.Datetime, c.Name)
		case core.SemanticCategorical:
			s.Categorical = append(s.Categorical, c.Name)
		}
	}
	return s
}
