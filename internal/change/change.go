// Package change classifies a single document mutation.
package change

import (
	"fmt"

	"github.com/docshistory/histories-backend/internal/document"
	"github.com/docshistory/histories-backend/internal/utils/errors"
)

// Type is the kind of a document mutation.
type Type int

// Known mutation types. The zero value is not a valid type.
const (
	Create Type = iota + 1
	Delete
	Update
)

func (t Type) String() string {
	switch t {
	case Create:
		return "CREATE"
	case Delete:
		return "DELETE"
	case Update:
		return "UPDATE"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// MarshalText encodes the type by its name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &errors.InvalidStateError{Msg: fmt.Sprintf("invalid change type: %v", t)}
	}
	return []byte(t.String()), nil
}

// Valid reports whether t is one of Create, Delete and Update.
func (t Type) Valid() bool {
	return t == Create || t == Delete || t == Update
}

// Change is the state of a document right before and right after one mutation.
type Change struct {
	Before document.Snapshot
	After  document.Snapshot
}

// New creates a change. At least one of the snapshots must exist.
func New(before, after document.Snapshot) (Change, error) {
	c := Change{Before: before, After: after}
	if _, err := Classify(c); err != nil {
		return Change{}, err
	}
	return c, nil
}

// Path returns the path of the changed document.
func (c Change) Path() string {
	if c.After.Exists {
		return c.After.Name
	}
	return c.Before.Name
}

// Classify determines the type of the change. The after side is checked first.
func Classify(c Change) (Type, error) {
	if !c.After.Exists {
		if !c.Before.Exists {
			return 0, &errors.InvalidStateError{Msg: "neither before nor after snapshot exists"}
		}
		return Delete, nil
	}
	if !c.Before.Exists {
		return Create, nil
	}
	return Update, nil
}
