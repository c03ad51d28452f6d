package diff

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/docshistory/histories-backend/internal/document"
)

var simpleSegment = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z_0-9]*$`)

// Field returns the path in Firestore field path notation, e.g. "address.city" or "tags.`a.b`".
func (e Entry) Field() string {
	segments := make([]string, len(e.Path))
	for i, s := range e.Path {
		if simpleSegment.MatchString(s) {
			segments[i] = s
			continue
		}
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, "`", "\\`")
		segments[i] = "`" + s + "`"
	}
	return strings.Join(segments, ".")
}

// Encode converts the diff into a value which can be stored as a Firestore field.
// Each entry becomes a map with "field", "path", "op" and "before" and/or "after" keys.
func (d HistoryDiff) Encode() []interface{} {
	out := make([]interface{}, len(d))
	for i, e := range d {
		path := make([]interface{}, len(e.Path))
		for j, s := range e.Path {
			path[j] = s
		}

		m := map[string]interface{}{
			"field": e.Field(),
			"path":  path,
			"op":    string(e.Op),
		}
		if e.Op != Added {
			m["before"] = document.Denormalize(e.Before)
		}
		if e.Op != Removed {
			m["after"] = document.Denormalize(e.After)
		}
		out[i] = m
	}
	return out
}

type jsonEntry struct {
	Field  string          `json:"field"`
	Path   []string        `json:"path"`
	Op     Op              `json:"op"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// MarshalJSON encodes the entry. Non-finite numbers are encoded as strings "NaN", "Infinity" and "-Infinity".
func (e Entry) MarshalJSON() ([]byte, error) {
	je := jsonEntry{Field: e.Field(), Path: e.Path, Op: e.Op}
	if je.Path == nil {
		je.Path = []string{}
	}

	var err error
	if e.Op != Added {
		if je.Before, err = json.Marshal(JSONSafe(e.Before)); err != nil {
			return nil, err
		}
	}
	if e.Op != Removed {
		if je.After, err = json.Marshal(JSONSafe(e.After)); err != nil {
			return nil, err
		}
	}
	return json.Marshal(je)
}

// MarshalJSON encodes the diff as a JSON array, an empty diff is "[]".
func (d HistoryDiff) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Entry(d))
}

// JSONSafe converts a normalised value into one encoding/json can always marshal.
func JSONSafe(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		switch {
		case math.IsNaN(v):
			return "NaN"
		case math.IsInf(v, 1):
			return "Infinity"
		case math.IsInf(v, -1):
			return "-Infinity"
		}
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = JSONSafe(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = JSONSafe(item)
		}
		return out
	default:
		return v
	}
}
