package common

import (
	"fmt"
	"math"
	"strings"
)

// GetStringArg returns the trimmed string argument key, or def when it is
// absent or empty.
func GetStringArg(args map[string]any, key, def string) string {
	v, ok := args[key].(string)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// RequireStringArg returns the string argument key or an error naming it.
func RequireStringArg(args map[string]any, key string) (string, error) {
	v := GetStringArg(args, key, "")
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// GetIntArg returns the integer argument key, or def when it is absent.
// JSON numbers arrive as float64; fractional values are rejected.
func GetIntArg(args map[string]any, key string, def int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// GetBoolArg returns the boolean argument key, or def when it is absent or
// not a boolean.
func GetBoolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
