package diff

import (
	"encoding/json"
	ers "errors"
	"math"
	"testing"
	"time"

	"github.com/docshistory/histories-backend/internal/change"
	"github.com/docshistory/histories-backend/internal/document"
	"github.com/docshistory/histories-backend/internal/utils/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/latlng"
)

func TestCompute(t *testing.T) {
	t1 := time.Date(2020, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		t      change.Type
		before map[string]interface{}
		after  map[string]interface{}
		want   HistoryDiff
	}{
		{
			name:  "create",
			t:     change.Create,
			after: map[string]interface{}{"name": "Alice"},
			want:  HistoryDiff{{Path: []string{"name"}, Op: Added, After: "Alice"}},
		},
		{
			name:   "delete",
			t:      change.Delete,
			before: map[string]interface{}{"name": "Alice"},
			want:   HistoryDiff{{Path: []string{"name"}, Op: Removed, Before: "Alice"}},
		},
		{
			name:   "update",
			t:      change.Update,
			before: map[string]interface{}{"n": 1},
			after:  map[string]interface{}{"n": 2},
			want:   HistoryDiff{{Path: []string{"n"}, Op: Changed, Before: int64(1), After: int64(2)}},
		},
		{
			name:   "nested change isolation",
			t:      change.Update,
			before: map[string]interface{}{"a": map[string]interface{}{"b": 1, "c": 2}},
			after:  map[string]interface{}{"a": map[string]interface{}{"b": 1, "c": 3}},
			want:   HistoryDiff{{Path: []string{"a", "c"}, Op: Changed, Before: int64(2), After: int64(3)}},
		},
		{
			name:   "added and removed fields",
			t:      change.Update,
			before: map[string]interface{}{"keep": true, "old": "x"},
			after:  map[string]interface{}{"keep": true, "new": "y"},
			want: HistoryDiff{
				{Path: []string{"new"}, Op: Added, After: "y"},
				{Path: []string{"old"}, Op: Removed, Before: "x"},
			},
		},
		{
			name:  "create expands nested maps",
			t:     change.Create,
			after: map[string]interface{}{"address": map[string]interface{}{"city": "Prague", "geo": map[string]interface{}{}}, "age": 30},
			want: HistoryDiff{
				{Path: []string{"address", "city"}, Op: Added, After: "Prague"},
				{Path: []string{"address", "geo"}, Op: Added, After: map[string]interface{}{}},
				{Path: []string{"age"}, Op: Added, After: int64(30)},
			},
		},
		{
			name:   "map appearing in update",
			t:      change.Update,
			before: map[string]interface{}{},
			after:  map[string]interface{}{"a": map[string]interface{}{"b": "c"}},
			want:   HistoryDiff{{Path: []string{"a", "b"}, Op: Added, After: "c"}},
		},
		{
			name:   "map replaced by scalar",
			t:      change.Update,
			before: map[string]interface{}{"a": map[string]interface{}{"b": 1}},
			after:  map[string]interface{}{"a": "flat"},
			want:   HistoryDiff{{Path: []string{"a"}, Op: Changed, Before: map[string]interface{}{"b": int64(1)}, After: "flat"}},
		},
		{
			name:   "arrays are whole values",
			t:      change.Update,
			before: map[string]interface{}{"tags": []interface{}{"a", "b"}, "same": []interface{}{1, 2}},
			after:  map[string]interface{}{"tags": []interface{}{"a", "c"}, "same": []interface{}{int64(1), int64(2)}},
			want:   HistoryDiff{{Path: []string{"tags"}, Op: Changed, Before: []interface{}{"a", "b"}, After: []interface{}{"a", "c"}}},
		},
		{
			name:   "integer and double differ",
			t:      change.Update,
			before: map[string]interface{}{"n": 1},
			after:  map[string]interface{}{"n": 1.0},
			want:   HistoryDiff{{Path: []string{"n"}, Op: Changed, Before: int64(1), After: 1.0}},
		},
		{
			name:   "value set to null",
			t:      change.Update,
			before: map[string]interface{}{"n": "x"},
			after:  map[string]interface{}{"n": nil},
			want:   HistoryDiff{{Path: []string{"n"}, Op: Changed, Before: "x", After: nil}},
		},
		{
			name:   "equal special values",
			t:      change.Update,
			before: map[string]interface{}{"nan": math.NaN(), "at": t1, "geo": &latlng.LatLng{Latitude: 50, Longitude: 14}, "raw": []byte("ab")},
			after:  map[string]interface{}{"nan": math.NaN(), "at": t1.In(time.FixedZone("CET", 3600)), "geo": document.GeoPoint{Latitude: 50, Longitude: 14}, "raw": []byte("ab")},
			want:   HistoryDiff{},
		},
		{
			name:  "empty document",
			t:     change.Create,
			after: map[string]interface{}{},
			want:  HistoryDiff{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.t, tt.before, tt.after)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got, equalOpts...); diff != "" {
				t.Fatalf("Compute mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestComputeDoesNotMutateInputs(t *testing.T) {
	before := map[string]interface{}{"a": map[string]interface{}{"b": 1, "list": []interface{}{1, 2}}, "x": "y"}
	after := map[string]interface{}{"a": map[string]interface{}{"b": 2, "list": []interface{}{1, 3}}}

	beforeCopy, err := document.Normalize(before)
	require.NoError(t, err)
	afterCopy, err := document.Normalize(after)
	require.NoError(t, err)

	d, err := Compute(change.Update, before, after)
	require.NoError(t, err)

	// modifying the result must not touch the inputs
	for _, e := range d {
		if list, ok := e.After.([]interface{}); ok {
			list[0] = "changed"
		}
	}

	assert.Equal(t, 1, before["a"].(map[string]interface{})["b"])
	assert.Equal(t, 1, after["a"].(map[string]interface{})["list"].([]interface{})[0])

	normalizedBefore, _ := document.Normalize(before)
	normalizedAfter, _ := document.Normalize(after)
	assert.Empty(t, cmp.Diff(beforeCopy, normalizedBefore))
	assert.Empty(t, cmp.Diff(afterCopy, normalizedAfter))
}

func TestComputeInvalidPresence(t *testing.T) {
	body := map[string]interface{}{"a": 1}

	tests := []struct {
		name   string
		t      change.Type
		before map[string]interface{}
		after  map[string]interface{}
	}{
		{name: "create with before", t: change.Create, before: body, after: body},
		{name: "delete with after", t: change.Delete, before: body, after: body},
		{name: "update without before", t: change.Update, after: body},
		{name: "update without after", t: change.Update, before: body},
		{name: "unknown type", t: change.Type(0), before: body, after: body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.t, tt.before, tt.after)

			var invalidState *errors.InvalidStateError
			assert.True(t, ers.As(err, &invalidState), "unexpected error %v", err)
		})
	}
}

func TestComputeUnsupportedValue(t *testing.T) {
	before := map[string]interface{}{"a": map[string]interface{}{"ch": make(chan int)}}

	d, err := Compute(change.Delete, before, nil)
	assert.Nil(t, d)

	var unsupported *errors.UnsupportedValueError
	require.True(t, ers.As(err, &unsupported), "unexpected error %v", err)
	assert.Equal(t, []string{"a", "ch"}, unsupported.Path)
}

func TestFieldAndFind(t *testing.T) {
	d := HistoryDiff{
		{Path: []string{"address", "city"}, Op: Added, After: "Prague"},
		{Path: []string{"tags", "a.b"}, Op: Removed, Before: true},
		{Path: []string{"weird`name", "1x"}, Op: Removed, Before: true},
	}

	assert.Equal(t, []string{"address.city", "tags.`a.b`", "`weird\\`name`.`1x`"}, d.Fields())

	e, ok := d.Find("tags", "a.b")
	assert.True(t, ok)
	assert.Equal(t, Removed, e.Op)

	_, ok = d.Find("tags")
	assert.False(t, ok)
}

func TestEncode(t *testing.T) {
	d := HistoryDiff{
		{Path: []string{"geo"}, Op: Changed, Before: nil, After: document.GeoPoint{Latitude: 1, Longitude: 2}},
		{Path: []string{"name"}, Op: Added, After: "Alice"},
		{Path: []string{"ref"}, Op: Removed, Before: document.Reference("projects/p/databases/(default)/documents/a/b")},
	}

	want := []interface{}{
		map[string]interface{}{"field": "geo", "path": []interface{}{"geo"}, "op": "CHANGED", "before": nil, "after": &latlng.LatLng{Latitude: 1, Longitude: 2}},
		map[string]interface{}{"field": "name", "path": []interface{}{"name"}, "op": "ADDED", "after": "Alice"},
		map[string]interface{}{"field": "ref", "path": []interface{}{"ref"}, "op": "REMOVED", "before": "projects/p/databases/(default)/documents/a/b"},
	}

	got := d.Encode()
	assert.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestMarshalJSON(t *testing.T) {
	d, err := Compute(change.Update,
		map[string]interface{}{"a": map[string]interface{}{"b": 1, "c": 2}, "gone": math.Inf(1), "x": nil},
		map[string]interface{}{"a": map[string]interface{}{"b": 1, "c": 3}, "new": time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC), "x": "set"},
	)
	require.NoError(t, err)

	js, err := json.Marshal(d)
	require.NoError(t, err)

	assert.Equal(t, `[{"field":"a.c","path":["a","c"],"op":"CHANGED","before":2,"after":3},`+
		`{"field":"gone","path":["gone"],"op":"REMOVED","before":"Infinity"},`+
		`{"field":"new","path":["new"],"op":"ADDED","after":"2020-01-02T03:04:05.000000006Z"},`+
		`{"field":"x","path":["x"],"op":"CHANGED","before":null,"after":"set"}]`, string(js))

	empty, err := json.Marshal(HistoryDiff(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
