package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupSetting returns the first of keys present in settings. viper lowercases
// keys, so each key is also tried in lower case.
func lookupSetting(settings map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// number widens the numeric kinds YAML and JSON decoders produce. ok is false
// for anything else.
func number(value any) (f float64, ok bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// asInt accepts any number or a decimal string. Fractions are truncated.
func asInt(value any) (int, error) {
	if value == nil {
		return 0, nil
	}
	if f, ok := number(value); ok {
		return int(f), nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func asFloat64(value any) (float64, error) {
	if value == nil {
		return 0, nil
	}
	if f, ok := number(value); ok {
		return f, nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if v = strings.TrimSpace(v); v == "" {
			return false, nil
		}
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asDuration accepts a time.Duration, a Go duration string ("250ms"), or a
// bare number of seconds.
func asDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		if v = strings.TrimSpace(v); v == "" {
			return 0, nil
		}
		return time.ParseDuration(v)
	}
	if secs, ok := number(value); ok {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("unsupported duration type %T", value)
}

// asStringSlice accepts a list or a single string.
func asStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
}

// toStringKeyMap normalizes a decoded mapping to lowercase string keys.
func toStringKeyMap(value any) (map[string]any, error) {
	out := map[string]any{}
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			out[strings.ToLower(strings.TrimSpace(key))] = val
		}
	case map[any]any:
		for key, val := range v {
			s, err := asString(key)
			if err != nil {
				return nil, err
			}
			out[strings.ToLower(strings.TrimSpace(s))] = val
		}
	default:
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	return out, nil
}
