package domain

import "fmt"

// ConditionKind tags a match condition.
type ConditionKind string

const (
	ConditionRange       ConditionKind = "range"
	ConditionDemographic ConditionKind = "demographic"
	ConditionDefault     ConditionKind = "default"
)

// Condition is one predicate of a result. Only the fields of its Kind are read:
// range uses Min/Max (nil = unbounded), demographic uses Value, default uses none.
type Condition struct {
	Kind  ConditionKind `json:"kind"`
	Min   *int64        `json:"min,omitempty"`
	Max   *int64        `json:"max,omitempty"`
	Value string        `json:"value,omitempty"`
}

// RangeCondition builds a score range predicate. Pass nil for an open end.
func RangeCondition(min, max *int64) Condition {
	return Condition{Kind: ConditionRange, Min: min, Max: max}
}

// DemographicCondition builds a demographic predicate.
func DemographicCondition(value string) Condition {
	return Condition{Kind: ConditionDemographic, Value: value}
}

// DefaultCondition marks a result as the fallback of its test.
func DefaultCondition() Condition {
	return Condition{Kind: ConditionDefault}
}

// Bound is a convenience for range literals.
func Bound(v int64) *int64 {
	return &v
}

// Result is a named outcome gated by an AND-list of conditions.
// Lower Priority values are checked first.
type Result struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Priority    int         `json:"priority"`
	Conditions  []Condition `json:"conditions"`
}

// IsDefault reports whether the result carries the default flag.
func (r Result) IsDefault() bool {
	for _, c := range r.Conditions {
		if c.Kind == ConditionDefault {
			return true
		}
	}
	return false
}

// Validate returns ErrMalformedMatchCondition for conditions that cannot be evaluated.
func (r Result) Validate() error {
	for i, c := range r.Conditions {
		switch c.Kind {
		case ConditionRange:
			if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
				return fmt.Errorf("result %s condition %d: min %d > max %d: %w", r.ID, i, *c.Min, *c.Max, ErrMalformedMatchCondition)
			}
		case ConditionDemographic:
			if c.Value == "" {
				return fmt.Errorf("result %s condition %d: empty demographic: %w", r.ID, i, ErrMalformedMatchCondition)
			}
		case ConditionDefault:
		default:
			return fmt.Errorf("result %s condition %d: unknown kind %q: %w", r.ID, i, c.Kind, ErrMalformedMatchCondition)
		}
	}
	return nil
}
