package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator is one entry of the If/Switch operator table (spec.md
// glossary). Numeric operators coerce both sides via toNumber; string
// operators via toStringValue; truthy operators accept the literals
// true/"true"/1 and their duals.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpStartsWith  Operator = "startsWith"
	OpEndsWith    Operator = "endsWith"
	OpGT          Operator = "gt"
	OpGTE         Operator = "gte"
	OpLT          Operator = "lt"
	OpLTE         Operator = "lte"
	OpIsEmpty     Operator = "isEmpty"
	OpIsNotEmpty  Operator = "isNotEmpty"
	OpRegex       Operator = "regex"
	OpIsTrue      Operator = "isTrue"
	OpIsFalse     Operator = "isFalse"
)

// EvaluateOperator applies op to (left, right) per the operator table.
func EvaluateOperator(op Operator, left, right interface{}) (bool, error) {
	switch op {
	case OpEquals:
		return toStringValue(left) == toStringValue(right), nil
	case OpNotEquals:
		return toStringValue(left) != toStringValue(right), nil
	case OpContains:
		return strings.Contains(toStringValue(left), toStringValue(right)), nil
	case OpNotContains:
		return !strings.Contains(toStringValue(left), toStringValue(right)), nil
	case OpStartsWith:
		return strings.HasPrefix(toStringValue(left), toStringValue(right)), nil
	case OpEndsWith:
		return strings.HasSuffix(toStringValue(left), toStringValue(right)), nil
	case OpGT:
		l, r, err := toNumberPair(left, right)
		if err != nil {
			return false, err
		}
		return l > r, nil
	case OpGTE:
		l, r, err := toNumberPair(left, right)
		if err != nil {
			return false, err
		}
		return l >= r, nil
	case OpLT:
		l, r, err := toNumberPair(left, right)
		if err != nil {
			return false, err
		}
		return l < r, nil
	case OpLTE:
		l, r, err := toNumberPair(left, right)
		if err != nil {
			return false, err
		}
		return l <= r, nil
	case OpIsEmpty:
		return isEmptyValue(left), nil
	case OpIsNotEmpty:
		return !isEmptyValue(left), nil
	case OpRegex:
		re, err := regexp.Compile(toStringValue(right))
		if err != nil {
			return false, fmt.Errorf("invalid regex %q: %w", toStringValue(right), err)
		}
		return re.MatchString(toStringValue(left)), nil
	case OpIsTrue:
		return isTruthy(left), nil
	case OpIsFalse:
		return !isTruthy(left), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

func toStringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toNumber(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", val)
		}
		return f, nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

func toNumberPair(a, b interface{}) (float64, float64, error) {
	l, err := toNumber(a)
	if err != nil {
		return 0, 0, err
	}
	r, err := toNumber(b)
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}

func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case float64:
		return val == 1
	default:
		return false
	}
}
