package controls

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Values arrive from TOML (int64, float64), JSON (float64, json.Number) and
// the command line (string); each control coerces them to its own kind.

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: want integer, got %T", ErrInvalidValue, v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: want number, got %T", ErrInvalidValue, v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: want boolean, got %T", ErrInvalidValue, v)
	}
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("%w: want string, got %T", ErrInvalidValue, v)
	}
}

// toNick accepts either a nick or the numeric value of an enum entry.
func toNick(e Enum, v any) (string, int, error) {
	if s, ok := v.(string); ok {
		if value, found := e.Lookup(s); found {
			return s, value, nil
		}
		if _, err := strconv.Atoi(s); err != nil {
			return "", 0, fmt.Errorf("%w: %q not one of %v", ErrInvalidValue, s, e.Nicks())
		}
	}
	n, err := toInt(v)
	if err != nil {
		return "", 0, fmt.Errorf("%w: want one of %v", ErrInvalidValue, e.Nicks())
	}
	nick, ok := e.Nick(n)
	if !ok {
		return "", 0, fmt.Errorf("%w: %d not one of %v", ErrInvalidValue, n, e.Nicks())
	}
	return nick, n, nil
}
