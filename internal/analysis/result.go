package analysis

import (
	"encoding/json"
	"fmt"
)

// Result maps an enabled feature name to a string or an ordered []string.
type Result map[string]interface{}

// Keys lists the populated features.
func (r Result) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}

// String returns the scalar stored under key.
func (r Result) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// List returns the sequence stored under key.
func (r Result) List(key string) ([]string, bool) {
	v, ok := r[key].([]string)
	return v, ok
}

// UnmarshalJSON restores []string values so an exported result parses back to
// the same shape it was written from.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Result, len(raw))
	for k, msg := range raw {
		if string(msg) == "null" {
			out[k] = nil
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			out[k] = s
			continue
		}
		var list []string
		if err := json.Unmarshal(msg, &list); err == nil {
			if list == nil {
				list = []string{}
			}
			out[k] = list
			continue
		}
		var other interface{}
		if err := json.Unmarshal(msg, &other); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = other
	}
	*r = out
	return nil
}
