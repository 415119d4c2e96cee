package store

import (
	"encoding/json"
	"fmt"
)

// marshalHeaders encodes headers as a JSON object. nil encodes as {}.
// encoding/json sorts map keys, so equal header sets encode identically.
func marshalHeaders(h map[string]string) (string, error) {
	if h == nil {
		return "{}", nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("marshal headers: %w", err)
	}
	return string(data), nil
}

// unmarshalHeaders decodes a stored header object. Always returns a non-nil map.
func unmarshalHeaders(s string) (map[string]string, error) {
	h := map[string]string{}
	if s == "" {
		return h, nil
	}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	return h, nil
}
