package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ConvertToInt handles the integer encodings found in landed CSV files,
// including integral floats ("4.0") written by dataframe exports.
func ConvertToInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("non-integral value %v", v)
		}
		// float64(math.MaxInt) rounds up, so it is already out of range.
		if v >= math.MaxInt || v < math.MinInt {
			return 0, fmt.Errorf("value %v overflows int", v)
		}
		return int(v), nil
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", v)
		}
		return ConvertToInt(f)
	case []byte:
		return ConvertToInt(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

// ConvertToBool accepts the flag encodings used by the join output
// (1/0, 1.0/0.0, true/false in any case).
func ConvertToBool(val interface{}) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		switch s {
		case "true", "t", "yes":
			return true, nil
		case "false", "f", "no":
			return false, nil
		}
		n, err := ConvertToInt(s)
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool", v)
		}
		return n != 0, nil
	default:
		n, err := ConvertToInt(v)
		if err != nil {
			return false, fmt.Errorf("cannot convert %T to bool", val)
		}
		return n != 0, nil
	}
}

// NullableString returns nil for an empty cell.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NullableInt parses a cell into an optional int. A non-empty cell that is
// not an integer yields nil and ok=false so callers can keep the raw text.
func NullableInt(s string) (v *int, ok bool) {
	if s == "" {
		return nil, true
	}
	n, err := ConvertToInt(s)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// NullableBool parses a cell into an optional bool; unparseable cells are nil.
func NullableBool(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := ConvertToBool(s)
	if err != nil {
		return nil
	}
	return &b
}
