package evaluator

import "strings"

// Supported comparison operators of an alert rule.
const (
	OpGreater      = ">"
	OpLess         = "<"
	OpEqual        = "="
	OpLessEqual    = "<="
	OpGreaterEqual = ">="
)

// Compare reports whether value satisfies "value <operator> threshold".
// An unrecognized operator never fires.
func Compare(value float64, operator string, threshold float64) bool {
	switch strings.TrimSpace(operator) {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpEqual:
		return value == threshold
	case OpLessEqual:
		return value <= threshold
	case OpGreaterEqual:
		return value >= threshold
	default:
		return false
	}
}
