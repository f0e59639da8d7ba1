package simulation

import (
	"fmt"
	"time"
)

// Float reads an optional numeric parameter. ok is false when the parameter
// is absent.
func Float(params map[string]interface{}, name string) (v float64, ok bool, err error) {
	raw, present := params[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	switch val := raw.(type) {
	case float64:
		return val, true, nil
	case int:
		return float64(val), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
}

// Int reads an optional integer parameter
func Int(params map[string]interface{}, name string) (v int, ok bool, err error) {
	raw, present := params[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	switch val := raw.(type) {
	case int:
		return val, true, nil
	case float64:
		if val != float64(int(val)) {
			return 0, false, fmt.Errorf("%s must be an integer", name)
		}
		return int(val), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
}

// String reads an optional string parameter. Empty strings count as absent.
func String(params map[string]interface{}, name string) (string, bool) {
	raw, present := params[name]
	if !present || raw == nil {
		return "", false
	}
	s := fmt.Sprintf("%v", raw)
	return s, s != ""
}

// Bool reads an optional boolean parameter
func Bool(params map[string]interface{}, name string) (v bool, ok bool, err error) {
	raw, present := params[name]
	if !present || raw == nil {
		return false, false, nil
	}
	switch val := raw.(type) {
	case bool:
		return val, true, nil
	case string:
		switch val {
		case "true", "yes", "1":
			return true, true, nil
		case "false", "no", "0":
			return false, true, nil
		}
	}
	return false, false, fmt.Errorf("%s must be true or false", name)
}

// Duration reads an optional duration parameter given as a time.Duration,
// a Go duration string or a number of seconds
func Duration(params map[string]interface{}, name string) (v time.Duration, ok bool, err error) {
	raw, present := params[name]
	if !present || raw == nil {
		return 0, false, nil
	}
	switch val := raw.(type) {
	case time.Duration:
		return val, true, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, false, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, true, nil
	case float64:
		return time.Duration(val * float64(time.Second)), true, nil
	case int:
		return time.Duration(val) * time.Second, true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a duration", name)
	}
}

// FloatIn reads an optional number and checks it lies in [min, max]
func FloatIn(params map[string]interface{}, name string, min, max float64) (float64, bool, error) {
	v, ok, err := Float(params, name)
	if err != nil || !ok {
		return v, ok, err
	}
	if v < min || v > max {
		return 0, false, fmt.Errorf("%s must be between %g and %g", name, min, max)
	}
	return v, true, nil
}

// IntIn reads an optional integer and checks it lies in [min, max]
func IntIn(params map[string]interface{}, name string, min, max int) (int, bool, error) {
	v, ok, err := Int(params, name)
	if err != nil || !ok {
		return v, ok, err
	}
	if v < min || v > max {
		return 0, false, fmt.Errorf("%s must be between %d and %d", name, min, max)
	}
	return v, true, nil
}
