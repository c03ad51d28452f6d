// Package changetracker turns a document change into a history record.
package changetracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docshistory/histories-backend/internal/change"
	"github.com/docshistory/histories-backend/internal/constants"
	"github.com/docshistory/histories-backend/internal/diff"
	"github.com/docshistory/histories-backend/internal/document"
	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/docshistory/histories-backend/internal/utils"
	"github.com/docshistory/histories-backend/internal/utils/errors"
)

// DefaultDeleteCorrection is added to the reported update time of a deleted document.
// The event source reports the deletion commit time as before.UpdateTime, the correction
// keeps the deletion strictly after the last update of the document.
const DefaultDeleteCorrection = time.Millisecond

// Record is a history entry of one change.
type Record struct {
	Path      string
	Type      change.Type
	Timestamp time.Time
	// Body is a copy of the new document body, empty for deletions. It does not hold the diff, see Document.
	Body map[string]interface{}
	Diff diff.HistoryDiff
}

// Document returns the history document to store: the body with the diff under constants.DiffField.
// A field of the body with the same name is replaced.
func (r *Record) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(r.Body)+1)
	for key, value := range r.Body {
		doc[key] = document.Denormalize(value)
	}
	doc[constants.DiffField] = r.Diff.Encode()
	return doc
}

type jsonRecord struct {
	Path      string                 `json:"path"`
	Type      change.Type            `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Body      map[string]interface{} `json:"body"`
}

// MarshalJSON encodes the record with the same body layout as Document.
func (r *Record) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, len(r.Body)+1)
	for key, value := range r.Body {
		body[key] = diff.JSONSafe(value)
	}
	body[constants.DiffField] = r.Diff
	return json.Marshal(jsonRecord{Path: r.Path, Type: r.Type, Timestamp: r.Timestamp, Body: body})
}

// Tracker classifies changes and assembles history records. The zero value is not usable, see New.
type Tracker struct {
	deleteCorrection time.Duration
	rejectReserved   bool
}

// New creates a tracker from the config.
func New(config *utils.HistoryConfig) *Tracker {
	return &Tracker{
		deleteCorrection: config.DeleteTimestampCorrection,
		rejectReserved:   config.ReservedFieldPolicy == utils.PolicyReject,
	}
}

// NewDefault creates a tracker with the 1ms delete correction which overwrites the reserved field.
func NewDefault() *Tracker {
	return &Tracker{deleteCorrection: DefaultDeleteCorrection}
}

// Timestamp derives the commit time of the change.
func (t *Tracker) Timestamp(c change.Change) (time.Time, error) {
	changeType, err := change.Classify(c)
	if err != nil {
		return time.Time{}, err
	}
	return t.timestamp(changeType, c)
}

func (t *Tracker) timestamp(changeType change.Type, c change.Change) (time.Time, error) {
	switch changeType {
	case change.Create:
		return c.After.UpdateTime, nil
	case change.Delete:
		return c.Before.UpdateTime.Add(t.deleteCorrection), nil
	case change.Update:
		return c.After.UpdateTime, nil
	default:
		return time.Time{}, &errors.InvalidStateError{Msg: fmt.Sprintf("invalid change type: %v", changeType)}
	}
}

// Assemble builds the history record of the change. Snapshot data is not modified.
func (t *Tracker) Assemble(ctx context.Context, c change.Change) (*Record, error) {
	logger := logging.FromContext(ctx).Named("changetracker.Assemble")

	changeType, err := change.Classify(c)
	if err != nil {
		return nil, err
	}

	var before, after map[string]interface{}
	if changeType != change.Create {
		before = nonNil(c.Before.Data)
	}
	if changeType != change.Delete {
		after = nonNil(c.After.Data)
	}

	if _, ok := after[constants.DiffField]; ok {
		if t.rejectReserved {
			return nil, &errors.ReservedFieldError{Field: constants.DiffField}
		}
		logger.Warnf("Document %v has its own %v field, it gets overwritten in history", c.Path(), constants.DiffField)
	}

	d, err := diff.Compute(changeType, before, after)
	if err != nil {
		return nil, fmt.Errorf("cannot compute diff of %v: %w", c.Path(), err)
	}

	body := map[string]interface{}{}
	if changeType != change.Delete {
		if body, err = document.Normalize(after); err != nil {
			return nil, fmt.Errorf("cannot copy body of %v: %w", c.Path(), err)
		}
	}

	timestamp, err := t.timestamp(changeType, c)
	if err != nil {
		return nil, err
	}

	logger.Debugf("Assembled %v record of %v at %v with %d differences", changeType, c.Path(), timestamp, len(d))

	return &Record{
		Path:      c.Path(),
		Type:      changeType,
		Timestamp: timestamp,
		Body:      body,
		Diff:      d,
	}, nil
}

func nonNil(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return data
}
