// Package firestore decodes payloads of Cloud Functions Firestore triggers.
package firestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docshistory/histories-backend/internal/change"
	"github.com/docshistory/histories-backend/internal/document"
	"github.com/docshistory/histories-backend/internal/utils/errors"
	firestorepb "google.golang.org/genproto/googleapis/firestore/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// Event is the payload of a Firestore event.
type Event struct {
	OldValue   Value `json:"oldValue"`
	Value      Value `json:"value"`
	UpdateMask struct {
		FieldPaths []string `json:"fieldPaths"`
	} `json:"updateMask"`
}

// Value holds Firestore fields.
type Value struct {
	CreateTime time.Time `json:"createTime"`
	// Fields is the data for this value, encoded as Firestore typed values,
	// e.g. {"name": {"stringValue": "Alice"}}.
	Fields     map[string]json.RawMessage `json:"fields"`
	Name       string                     `json:"name"`
	UpdateTime time.Time                  `json:"updateTime"`
}

const documentsSeparator = "/documents/"

// Exists reports whether the value describes an existing document. Missing sides of an event are empty.
func (v Value) Exists() bool {
	return v.Name != ""
}

// DocumentPath returns the path of the document relative to the database root.
func (v Value) DocumentPath() string {
	if i := strings.Index(v.Name, documentsSeparator); i >= 0 {
		return v.Name[i+len(documentsSeparator):]
	}
	return v.Name
}

// Snapshot decodes the value into a document snapshot.
func (v Value) Snapshot() (document.Snapshot, error) {
	if !v.Exists() {
		return document.Snapshot{}, nil
	}

	data, err := decodeFields(nil, v.Fields)
	if err != nil {
		return document.Snapshot{}, err
	}

	return document.Snapshot{
		Name:       v.DocumentPath(),
		Exists:     true,
		Data:       data,
		CreateTime: v.CreateTime.UTC(),
		UpdateTime: v.UpdateTime.UTC(),
	}, nil
}

// Change decodes both sides of the event.
func (e Event) Change() (change.Change, error) {
	before, err := e.OldValue.Snapshot()
	if err != nil {
		return change.Change{}, fmt.Errorf("cannot decode old value of %v: %w", e.DocumentPath(), err)
	}
	after, err := e.Value.Snapshot()
	if err != nil {
		return change.Change{}, fmt.Errorf("cannot decode value of %v: %w", e.DocumentPath(), err)
	}
	return change.New(before, after)
}

// DocumentPath returns the path of the changed document.
func (e Event) DocumentPath() string {
	if e.Value.Exists() {
		return e.Value.DocumentPath()
	}
	return e.OldValue.DocumentPath()
}

func decodeFields(path []string, fields map[string]json.RawMessage) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	for key, raw := range fields {
		fieldPath := append(path, key)

		var pb firestorepb.Value
		if err := protojson.Unmarshal(raw, &pb); err != nil {
			return nil, malformed(fieldPath, "malformed value: %v", err)
		}

		value, err := fromProto(fieldPath, &pb)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// fromProto converts a decoded Firestore value into the normalised value kinds.
func fromProto(path []string, v *firestorepb.Value) (interface{}, error) {
	switch t := v.GetValueType().(type) {
	case *firestorepb.Value_NullValue:
		return nil, nil
	case *firestorepb.Value_BooleanValue:
		return t.BooleanValue, nil
	case *firestorepb.Value_IntegerValue:
		return t.IntegerValue, nil
	case *firestorepb.Value_DoubleValue:
		return t.DoubleValue, nil
	case *firestorepb.Value_TimestampValue:
		return t.TimestampValue.AsTime().UTC(), nil
	case *firestorepb.Value_StringValue:
		return t.StringValue, nil
	case *firestorepb.Value_BytesValue:
		b := make([]byte, len(t.BytesValue))
		copy(b, t.BytesValue)
		return b, nil
	case *firestorepb.Value_ReferenceValue:
		return document.Reference(t.ReferenceValue), nil
	case *firestorepb.Value_GeoPointValue:
		return document.GeoPoint{Latitude: t.GeoPointValue.GetLatitude(), Longitude: t.GeoPointValue.GetLongitude()}, nil
	case *firestorepb.Value_ArrayValue:
		values := t.ArrayValue.GetValues()
		out := make([]interface{}, len(values))
		for i, item := range values {
			value, err := fromProto(append(path, strconv.Itoa(i)), item)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil
	case *firestorepb.Value_MapValue:
		fields := t.MapValue.GetFields()
		out := make(map[string]interface{}, len(fields))
		for key, item := range fields {
			value, err := fromProto(append(path, key), item)
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	default:
		return nil, malformed(path, "value has no type")
	}
}

func malformed(path []string, format string, args ...interface{}) error {
	p := make([]string, len(path))
	copy(p, path)
	return &errors.UnsupportedValueError{Path: p, Msg: fmt.Sprintf(format, args...)}
}
