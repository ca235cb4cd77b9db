package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The panel answers with different envelopes depending on endpoint and
// release: {"data": ...}, {"obj": ...}, {"items": [...]}, bare objects, and
// {"response": {...}} on current releases. Callers name the candidate keys in
// priority order and get a typed default when none match.

// extract returns the value under the first candidate key that is present
// and non-null. A value of the wrong type yields def.
func extract[T any](body map[string]interface{}, keys []string, def T) T {
	for _, key := range keys {
		v, ok := body[key]
		if !ok || v == nil {
			continue
		}
		if typed, ok := v.(T); ok {
			return typed
		}
		return def
	}
	return def
}

func hasAny(body map[string]interface{}, keys []string) bool {
	for _, key := range keys {
		if v, ok := body[key]; ok && v != nil {
			return true
		}
	}
	return false
}

// unwrapResponse descends into a {"response": {...}} wrapper when none of
// the candidate keys sit at the top level
func unwrapResponse(body map[string]interface{}, keys []string) map[string]interface{} {
	if hasAny(body, keys) {
		return body
	}
	if inner, ok := body["response"].(map[string]interface{}); ok {
		return inner
	}
	return body
}

// extractList tries keys for a list and keeps its object elements
func extractList(body map[string]interface{}, keys ...string) []map[string]interface{} {
	if list, ok := body["response"].([]interface{}); ok && !hasAny(body, keys) {
		return objects(list)
	}
	return objects(extract(unwrapResponse(body, keys), keys, []interface{}{}))
}

// extractObject tries keys for an object, falling back to the body itself
func extractObject(body map[string]interface{}, keys ...string) map[string]interface{} {
	body = unwrapResponse(body, keys)
	if obj := extract[map[string]interface{}](body, keys, nil); obj != nil {
		return obj
	}
	return body
}

func objects(list []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// decodeBody parses a JSON body. Anything that is not a JSON object decodes
// to an empty record, except a top-level array which is exposed as "data".
func decodeBody(raw []byte) map[string]interface{} {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return map[string]interface{}{}
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		return map[string]interface{}{"data": t}
	default:
		return map[string]interface{}{}
	}
}

// ==================== Field readers ====================

func stringOf(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case json.Number:
			return t.String()
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			b, _ := json.Marshal(t)
			return string(b)
		}
	}
	return ""
}

func int64Of(m map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		return toInt64(v)
	}
	return 0
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return int64(f)
		}
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func boolOf(m map[string]interface{}, keys ...string) *bool {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		var b bool
		switch t := v.(type) {
		case bool:
			b = t
		case string:
			b = strings.EqualFold(t, "true") || t == "1" || strings.EqualFold(t, "active")
		default:
			b = toInt64(t) != 0
		}
		return &b
	}
	return nil
}

// millisOf reads a timestamp given either as epoch millis or an RFC 3339 string
func millisOf(m map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				return ts.UnixMilli()
			}
		}
		return toInt64(v)
	}
	return 0
}
