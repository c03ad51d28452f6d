// Package document holds the normalised representation of Firestore document bodies.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/docshistory/histories-backend/internal/utils/errors"
	"google.golang.org/genproto/googleapis/type/latlng"
)

// Snapshot is a read-only state of one document at one point in time.
type Snapshot struct {
	// Name is the document path relative to the database root, e.g. "users/alice".
	Name       string
	Exists     bool
	Data       map[string]interface{}
	CreateTime time.Time
	UpdateTime time.Time
}

// GeoPoint is a normalised geographical point.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
}

// Reference is a normalised reference to another document, kept as its path.
type Reference string

// Normalize returns a deep copy of data with every value converted to one of the supported kinds:
// nil, bool, int64, float64, string, []byte, time.Time, GeoPoint, Reference, []interface{} and
// map[string]interface{}. A nil map stays nil.
func Normalize(data map[string]interface{}) (map[string]interface{}, error) {
	if data == nil {
		return nil, nil
	}
	return normalizeMap(nil, data)
}

func normalizeMap(path []string, data map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(data))
	for _, key := range SortedKeys(data) {
		value, err := normalize(append(path, key), data[key])
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func normalize(path []string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool, string, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return normalizeUnsigned(path, uint64(v))
	case uint64:
		return normalizeUnsigned(path, v)
	case float32:
		return float64(v), nil
	case json.Number:
		return normalizeNumber(path, v)
	case []byte:
		b := make([]byte, len(v))
		copy(b, v)
		return b, nil
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UTC(), nil
	case GeoPoint:
		return v, nil
	case *latlng.LatLng:
		if v == nil {
			return nil, nil
		}
		return GeoPoint{Latitude: v.GetLatitude(), Longitude: v.GetLongitude()}, nil
	case Reference:
		return v, nil
	case *firestore.DocumentRef:
		if v == nil {
			return nil, nil
		}
		return Reference(v.Path), nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			n, err := normalize(append(path, strconv.Itoa(i)), item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]interface{}:
		return normalizeMap(path, v)
	default:
		return nil, &errors.UnsupportedValueError{Path: copyPath(path), Msg: fmt.Sprintf("type %T", value)}
	}
}

func normalizeUnsigned(path []string, v uint64) (interface{}, error) {
	if v > math.MaxInt64 {
		return nil, &errors.UnsupportedValueError{Path: copyPath(path), Msg: fmt.Sprintf("integer %d overflows int64", v)}
	}
	return int64(v), nil
}

func normalizeNumber(path []string, n json.Number) (interface{}, error) {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, &errors.UnsupportedValueError{Path: copyPath(path), Msg: fmt.Sprintf("number %q", n.String())}
	}
	return f, nil
}

// Denormalize converts a normalised value back into a value the Firestore client can store.
// References are stored as their path, the client cannot build one without a database handle.
func Denormalize(value interface{}) interface{} {
	switch v := value.(type) {
	case GeoPoint:
		return &latlng.LatLng{Latitude: v.Latitude, Longitude: v.Longitude}
	case Reference:
		return string(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = Denormalize(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = Denormalize(item)
		}
		return out
	default:
		return v
	}
}

// SortedKeys returns keys of m in ascending order.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func copyPath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
