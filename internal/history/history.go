// Package history persists history records.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/avast/retry-go"
	"github.com/docshistory/histories-backend/internal/change"
	"github.com/docshistory/histories-backend/internal/changetracker"
	"github.com/docshistory/histories-backend/internal/constants"
	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/docshistory/histories-backend/internal/pubsub"
	"github.com/docshistory/histories-backend/internal/store"
	"github.com/docshistory/histories-backend/internal/utils"
	v1 "github.com/docshistory/histories-backend/pkg/api/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Writer writes history records and announces them.
type Writer struct {
	store      store.Storer
	publisher  pubsub.EventPublisher
	collection string
	topic      string
	attempts   uint
	retryDelay time.Duration
}

// NewWriter creates a writer. Publisher may be nil when config has no topic.
func NewWriter(config *utils.HistoryConfig, storer store.Storer, publisher pubsub.EventPublisher) *Writer {
	return &Writer{
		store:      storer,
		publisher:  publisher,
		collection: config.HistoryCollection,
		topic:      config.HistoryTopic,
		attempts:   config.WriteRetryAttempts,
		retryDelay: 100 * time.Millisecond,
	}
}

// RecordID returns the ID of the history record of a change of given type committed at timestamp.
func RecordID(timestamp time.Time, changeType change.Type) string {
	id := timestamp.UTC().Format(constants.HistoryIDLayout)
	if changeType == change.Delete {
		id += constants.DeletedIDSuffix
	}
	return id
}

// RecordPath returns the path of the history record of document docPath.
func RecordPath(collection string, docPath string, timestamp time.Time, changeType change.Type) string {
	return fmt.Sprintf("%v/%v/%v/%v", collection, DocumentID(docPath), constants.SubcollectionChanges, RecordID(timestamp, changeType))
}

var reservedID = regexp.MustCompile(`^__.*__$`)

// DocumentID returns the ID of the history document holding records of docPath. It is the escaped
// path, or a hash of the path when the escaped path is not a valid Firestore ID (reserved or too long).
func DocumentID(docPath string) string {
	id := url.QueryEscape(docPath)
	if len(id) <= constants.MaxDocumentIDBytes && !reservedID.MatchString(id) && id != "." && id != ".." {
		return id
	}
	sum := sha256.Sum256([]byte(docPath))
	return "sha256-" + hex.EncodeToString(sum[:])
}

// Write stores the record. A record which has been stored already is skipped, so redelivered
// events are not recorded twice.
func (w *Writer) Write(ctx context.Context, record *changetracker.Record) (string, error) {
	logger := logging.FromContext(ctx).Named("history.Write")

	path := RecordPath(w.collection, record.Path, record.Timestamp, record.Type)
	doc := record.Document()

	err := retry.Do(
		func() error {
			return w.store.Create(ctx, path, doc)
		},
		retry.Attempts(w.attempts),
		retry.Delay(w.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Debugf("Retrying write of %v (attempt %d): %v", path, n+1, err)
		}),
	)

	if status.Code(err) == codes.AlreadyExists {
		logger.Infof("History record %v already exists, skipping", path)
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("Error while writing history record %v: %w", path, err)
	}

	logger.Debugf("Saved %v history record %v", record.Type, path)

	if w.topic == "" || w.publisher == nil {
		return path, nil
	}

	msg := v1.HistoryRecordedMessage{
		Path:        record.Path,
		HistoryPath: path,
		Type:        record.Type.String(),
		Timestamp:   record.Timestamp,
		Fields:      record.Diff.Fields(),
	}
	if err := w.publisher.Publish(ctx, w.topic, msg); err != nil {
		return "", fmt.Errorf("Error while publishing history record %v: %w", path, err)
	}

	return path, nil
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.Aborted, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
