package normalize

import (
	"encoding/json"
	"sort"
	"strings"
)

// Extractor walks a provider response looking for an image payload.
type Extractor struct {
	table KeyTable
}

// NewExtractor builds an Extractor over the given key table.
func NewExtractor(table KeyTable) *Extractor {
	if table.MaxDepth <= 0 {
		table.MaxDepth = DefaultMaxDepth
	}
	return &Extractor{table: table}
}

// Version reports the key table version in use.
func (e *Extractor) Version() string {
	return e.table.Version
}

// Extract returns the first non-empty string found in v, or "" if none.
// v may be raw text or bytes, JSON decoded into any, or a map. Textual input
// that looks like JSON is parsed; when parsing fails the trimmed text itself
// is the payload. Objects are searched by priority key first and then in
// member order. Structures deeper than the table's MaxDepth yield "".
func (e *Extractor) Extract(v any) string {
	return e.extract(v, 0)
}

func (e *Extractor) extract(v any, depth int) string {
	if depth > e.table.MaxDepth {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return e.fromText(t, depth)
	case []byte:
		return e.fromText(string(t), depth)
	case json.RawMessage:
		return e.fromText(string(t), depth)
	case []any:
		for _, item := range t {
			if found := e.extract(item, depth+1); found != "" {
				return found
			}
		}
	case object:
		for _, key := range e.table.Keys {
			if val, ok := t.get(key); ok {
				if found := e.extract(val, depth+1); found != "" {
					return found
				}
			}
		}
		for _, f := range t {
			if found := e.extract(f.Value, depth+1); found != "" {
				return found
			}
		}
	case map[string]any:
		for _, key := range e.table.Keys {
			if val, ok := t[key]; ok {
				if found := e.extract(val, depth+1); found != "" {
					return found
				}
			}
		}
		// Go maps have no insertion order; sort for determinism.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found := e.extract(t[k], depth+1); found != "" {
				return found
			}
		}
	}
	return ""
}

func (e *Extractor) fromText(s string, depth int) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if parsed, err := decodeOrdered([]byte(trimmed)); err == nil {
			return e.extract(parsed, depth+1)
		}
	}
	return trimmed
}
