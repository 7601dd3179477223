package core

// FieldSelection is a partial, user-chosen role mapping.
// Zero values and the literal "Auto" mean the role is unset.
type FieldSelection struct {
	X         string      `json:"x,omitempty"`
	Y         string      `json:"y,omitempty"`
	Category  string      `json:"category,omitempty"`
	Value     string      `json:"value,omitempty"`
	Stage     string      `json:"stage,omitempty"`
	Agg       Aggregation `json:"agg,omitempty"`
	TimeGrain TimeGrain   `json:"time_grain,omitempty"`
	TopN      int         `json:"top_n,omitempty"`
}

// Column returns the selected column for a column role, or "" when unset.
func (f FieldSelection) Column(role Role) string {
	var v string
	switch role {
	case RoleX:
		v = f.X
	case RoleY:
		v = f.Y
	case RoleCategory:
		v = f.Category
	case RoleValue:
		v = f.Value
	case RoleStage:
		v = f.Stage
	}
	if IsAuto(v) {
		return ""
	}
	return v
}

// With returns a copy of the selection with a column role set.
// Non-column roles are ignored.
func (f FieldSelection) With(role Role, column string) FieldSelection {
	switch role {
	case RoleX:
		f.X = column
	case RoleY:
		f.Y = column
	case RoleCategory:
		f.Category = column
	case RoleValue:
		f.Value = column
	case RoleStage:
		f.Stage = column
	}
	return f
}

// ResolvedSpec is a FieldSelection with every role of its preset filled,
// ready to send to the visualization backend. Roles that could not be
// filled from the schema stay empty and are omitted on the wire.
type ResolvedSpec struct {
	Preset    Preset      `json:"preset" yaml:"preset"`
	X         string      `json:"x,omitempty" yaml:"x,omitempty"`
	Y         string      `json:"y,omitempty" yaml:"y,omitempty"`
	Category  string      `json:"category,omitempty" yaml:"category,omitempty"`
	Value     string      `json:"value,omitempty" yaml:"value,omitempty"`
	Stage     string      `json:"stage,omitempty" yaml:"stage,omitempty"`
	Agg       Aggregation `json:"agg,omitempty" yaml:"agg,omitempty"`
	TimeGrain TimeGrain   `json:"time_grain,omitempty" yaml:"time_grain,omitempty"`
	TopN      int         `json:"top_n,omitempty" yaml:"top_n,omitempty"`
}

// Column returns the resolved column for a column role.
func (s ResolvedSpec) Column(role Role) string {
	switch role {
	case RoleX:
		return s.X
	case RoleY:
		return s.Y
	case RoleCategory:
		return s.Category
	case RoleValue:
		return s.Value
	case RoleStage:
		return s.Stage
	default:
		return ""
	}
}

// Unfilled lists the preset's column roles left empty because the schema
// had no candidate for them.
func (s ResolvedSpec) Unfilled() []Role {
	var missing []Role
	for _, slot := range s.Preset.Roles() {
		if slot.Column && s.Column(slot.Role) == "" {
			missing = append(missing, slot.Role)
		}
	}
	return missing
}
