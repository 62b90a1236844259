package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleID holds an identifier the backend may encode as a JSON string or number.
type FlexibleID string

// UnmarshalJSON accepts both `"123"` and `123`.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// String returns the raw identifier.
func (id FlexibleID) String() string {
	return string(id)
}

// NormalizeID renders an identifier in the canonical string form used for
// every cross-collection comparison. Summary ids arrive as strings, detail ids
// as integers; both must land on the same key.
func NormalizeID(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return canonicalNumeric(strings.TrimSpace(val))
	case FlexibleID:
		return canonicalNumeric(strings.TrimSpace(string(val)))
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return canonicalNumeric(val.String())
	case fmt.Stringer:
		return canonicalNumeric(strings.TrimSpace(val.String()))
	default:
		return fmt.Sprint(val)
	}
}

// canonicalNumeric strips leading zeros from purely numeric ids so "007" and 7 agree.
func canonicalNumeric(s string) string {
	if s == "" {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}
