// Package diff computes field-level differences between two states of a document.
//
// Nested maps are always compared field by field, so a change deep inside a map is reported
// on its own path instead of as a replacement of the whole map. Arrays and scalar values are
// compared as whole values. Entries are ordered by path, which makes the output independent of
// map iteration order.
package diff

import (
	"fmt"
	"sort"

	"github.com/docshistory/histories-backend/internal/change"
	"github.com/docshistory/histories-backend/internal/document"
	"github.com/docshistory/histories-backend/internal/utils/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Op is the kind of a single field difference.
type Op string

// Field difference kinds.
const (
	Added   Op = "ADDED"
	Removed Op = "REMOVED"
	Changed Op = "CHANGED"
)

// Entry is a difference of one field.
type Entry struct {
	// Path holds field names from the document root down to the changed field.
	Path []string
	Op   Op
	// Before is the previous value, nil for Added.
	Before interface{}
	// After is the new value, nil for Removed.
	After interface{}
}

// HistoryDiff is the ordered list of field differences of one mutation.
type HistoryDiff []Entry

// Empty reports whether there is no difference.
func (d HistoryDiff) Empty() bool {
	return len(d) == 0
}

// Fields returns the field paths of all entries in order.
func (d HistoryDiff) Fields() []string {
	fields := make([]string, len(d))
	for i, e := range d {
		fields[i] = e.Field()
	}
	return fields
}

// Find returns the entry for given path.
func (d HistoryDiff) Find(path ...string) (Entry, bool) {
	for _, e := range d {
		if comparePaths(e.Path, path) == 0 {
			return e, true
		}
	}
	return Entry{}, false
}

var equalOpts = []cmp.Option{cmpopts.EquateNaNs()}

// Compute computes the difference between before and after. A nil body means the state is absent:
// before must be nil exactly for change.Create, after exactly for change.Delete.
// Neither input is modified and the result shares no memory with them.
func Compute(t change.Type, before, after map[string]interface{}) (HistoryDiff, error) {
	if err := checkPresence(t, before, after); err != nil {
		return nil, err
	}

	b, err := document.Normalize(before)
	if err != nil {
		return nil, fmt.Errorf("cannot diff previous state: %w", err)
	}
	a, err := document.Normalize(after)
	if err != nil {
		return nil, fmt.Errorf("cannot diff new state: %w", err)
	}

	c := collector{entries: HistoryDiff{}}
	switch t {
	case change.Create:
		c.expand(nil, a, Added)
	case change.Delete:
		c.expand(nil, b, Removed)
	case change.Update:
		c.compareMaps(nil, b, a)
	default:
		return nil, &errors.InvalidStateError{Msg: fmt.Sprintf("invalid change type: %v", t)}
	}

	sort.SliceStable(c.entries, func(i, j int) bool {
		return comparePaths(c.entries[i].Path, c.entries[j].Path) < 0
	})

	return c.entries, nil
}

func checkPresence(t change.Type, before, after map[string]interface{}) error {
	var wantBefore, wantAfter bool
	switch t {
	case change.Create:
		wantAfter = true
	case change.Delete:
		wantBefore = true
	case change.Update:
		wantBefore, wantAfter = true, true
	default:
		return &errors.InvalidStateError{Msg: fmt.Sprintf("invalid change type: %v", t)}
	}

	if (before != nil) != wantBefore {
		return &errors.InvalidStateError{Msg: fmt.Sprintf("%v change with unexpected previous state (present: %v)", t, before != nil)}
	}
	if (after != nil) != wantAfter {
		return &errors.InvalidStateError{Msg: fmt.Sprintf("%v change with unexpected new state (present: %v)", t, after != nil)}
	}
	return nil
}

type collector struct {
	entries HistoryDiff
}

// expand reports value as added or removed. Non-empty maps are reported leaf by leaf.
func (c *collector) expand(path []string, value interface{}, op Op) {
	if m, ok := value.(map[string]interface{}); ok && (len(m) > 0 || path == nil) {
		for _, key := range document.SortedKeys(m) {
			c.expand(append(path, key), m[key], op)
		}
		return
	}

	e := Entry{Path: copyPath(path), Op: op}
	if op == Added {
		e.After = value
	} else {
		e.Before = value
	}
	c.entries = append(c.entries, e)
}

func (c *collector) compareMaps(path []string, before, after map[string]interface{}) {
	for _, key := range unionKeys(before, after) {
		fieldPath := append(path, key)
		bv, inBefore := before[key]
		av, inAfter := after[key]

		switch {
		case !inAfter:
			c.expand(fieldPath, bv, Removed)
		case !inBefore:
			c.expand(fieldPath, av, Added)
		default:
			bm, beforeIsMap := bv.(map[string]interface{})
			am, afterIsMap := av.(map[string]interface{})
			if beforeIsMap && afterIsMap {
				c.compareMaps(fieldPath, bm, am)
				continue
			}
			if !cmp.Equal(bv, av, equalOpts...) {
				c.entries = append(c.entries, Entry{Path: copyPath(fieldPath), Op: Changed, Before: bv, After: av})
			}
		}
	}
}

func unionKeys(a, b map[string]interface{}) []string {
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func comparePaths(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func copyPath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
