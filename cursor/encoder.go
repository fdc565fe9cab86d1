package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
)

var (
	errNotBase64 = errors.New("invalid cursor: not base64")
	errNotJSON   = errors.New("invalid cursor: not JSON")
	errEmpty     = errors.New("invalid cursor: empty")
)

// encodeValues encodes cursor values as URL-safe base64 JSON.
//
//	{"c":"2024-01-01T00:00:00Z","i":"abc-123"}
//	→ eyJjIjoiMjAyNC0wMS0wMVQwMDowMDowMFoiLCJpIjoiYWJjLTEyMyJ9
func encodeValues(values map[string]any) (*string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	return &encoded, nil
}

// decodeValues reverses encodeValues. Numbers are kept as json.Number so
// integer prices survive the round trip exactly.
func decodeValues(cursor string) (map[string]any, error) {
	if cursor == "" {
		return nil, errEmpty
	}
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, errNotBase64
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, errNotJSON
	}
	if len(values) == 0 {
		return nil, errEmpty
	}
	return values, nil
}
