// Package sync is the realtime data-synchronization core: it keeps a
// normalized projection of the remote collections current via cascading
// subscriptions, and performs the multi-collection writes the remote
// store cannot do transactionally.
package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// Deconstruct deep-clones a value into a plain document by round-tripping
// it through JSON. This strips any non-plain-data references and converts
// struct payloads into the wire field names before transmission.
func Deconstruct(v any) (store.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("deconstruct: %w", err)
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("deconstruct: %w", err)
	}
	return doc, nil
}

// StringifyDates returns a copy of the document with every time.Time
// value, however deeply nested in maps or slices, replaced by its RFC3339
// form. Other values are passed through unchanged.
func StringifyDates(d store.Document) store.Document {
	if d == nil {
		return nil
	}
	out := make(store.Document, len(d))
	for k, v := range d {
		out[k] = stringifyValue(v)
	}
	return out
}

func stringifyValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.Format(time.RFC3339Nano)
	case store.Document:
		return StringifyDates(val)
	case map[string]any:
		return StringifyDates(store.Document(val))
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = stringifyValue(e)
		}
		return out
	default:
		return v
	}
}
