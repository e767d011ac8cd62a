package models

import (
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// Coercion helpers used by the FromDoc constructors. Remote documents are
// denormalized and loosely typed, so every field access defends against
// absent, null, and wrong-typed values. Constructors never panic.

func docString(d store.Document, key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

func docBool(d store.Document, key string, def bool) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return def
}

func docFloat(d store.Document, key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func docMap(d store.Document, key string) store.Document {
	switch v := d[key].(type) {
	case store.Document:
		return v
	case map[string]any:
		return store.Document(v)
	}
	return nil
}

// docStringMap coerces a map field whose values should all be strings,
// dropping entries of any other type.
func docStringMap(d store.Document, key string) map[string]string {
	raw := docMap(d, key)
	if raw == nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func docSlice(d store.Document, key string) []any {
	if v, ok := d[key].([]any); ok {
		return v
	}
	return nil
}

// timeLayouts are the textual date forms accepted on inbound documents.
// RFC3339 is what this layer writes; the rest cover documents written by
// older clients.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// docTime parses a temporal field. Returns nil unless the value is a
// time.Time or a string in a recognized layout.
func docTime(d store.Document, key string) *time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}
