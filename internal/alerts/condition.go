package alerts

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/banddepth/banddepth/internal/scoring"
)

// condition is a parsed "field op value" expression.
//
// Supported fields:
//
//	depth   the curve's Modified Band Depth, in [0, 1]
//	count   the raw enclosure count
//
// Supported operators: > >= < <= == !=
type condition struct {
	field     string
	op        string
	threshold float64
}

func parseCondition(s string) (condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", s)
	}
	c := condition{field: parts[0], op: parts[1]}
	switch c.field {
	case "depth", "count":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown field %q", s, c.field)
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", s, c.op)
	}
	v, err := cast.ToFloat64E(parts[2])
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: threshold: %w", s, err)
	}
	c.threshold = v
	return c, nil
}

// eval returns whether r satisfies c and the value that was compared.
func (c condition) eval(r scoring.Result) (bool, float64) {
	var v float64
	switch c.field {
	case "depth":
		v = r.Depth
	case "count":
		v = float64(r.Count)
	}
	return compareFloat(v, c.op, c.threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
