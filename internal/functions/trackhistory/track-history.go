package trackhistory

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/functions/metadata"
	"github.com/docshistory/histories-backend/internal/changetracker"
	"github.com/docshistory/histories-backend/internal/firebase"
	"github.com/docshistory/histories-backend/internal/history"
	"github.com/docshistory/histories-backend/internal/logging"
	"github.com/docshistory/histories-backend/internal/pubsub"
	"github.com/docshistory/histories-backend/internal/store"
	"github.com/docshistory/histories-backend/internal/utils"
	"github.com/docshistory/histories-backend/pkg/firestore"
)

type dependencies struct {
	tracker *changetracker.Tracker
	writer  *history.Writer
}

var (
	depsMu sync.Mutex
	deps   *dependencies
)

// loadDependencies creates the dependencies on first successful use. A failed attempt is not
// remembered, the next event tries again.
func loadDependencies(ctx context.Context) (*dependencies, error) {
	depsMu.Lock()
	defer depsMu.Unlock()

	if deps != nil {
		return deps, nil
	}

	config, err := utils.LoadHistoryConfig(ctx)
	if err != nil {
		return nil, err
	}

	storer, publisher, err := clients(ctx, config)
	if err != nil {
		return nil, err
	}

	deps = &dependencies{
		tracker: changetracker.New(config),
		writer:  history.NewWriter(config, storer, publisher),
	}
	return deps, nil
}

func clients(ctx context.Context, config *utils.HistoryConfig) (store.Storer, pubsub.EventPublisher, error) {
	if config.Noop() {
		logging.FromContext(ctx).Infof("Mocking Firestore and PubSub")
		return store.NewMockClient(), &pubsub.MockClient{}, nil
	}

	firestoreClient, err := firebase.FirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	if config.HistoryTopic == "" {
		return store.Client{Firestore: firestoreClient}, nil, nil
	}

	publisher, err := pubsub.NewClient(ctx, config.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub.NewClient: %v", err)
	}
	return store.Client{Firestore: firestoreClient}, publisher, nil
}

//TrackHistory Handler of Firestore document writes.
func TrackHistory(ctx context.Context, e firestore.Event) error {
	d, err := loadDependencies(ctx)
	if err != nil {
		logging.FromContext(ctx).Errorf("Cannot initialize history tracking: %v", err)
		return err
	}

	return trackHistory(ctx, d, e)
}

func trackHistory(ctx context.Context, d *dependencies, e firestore.Event) error {
	logger := logging.FromContext(ctx).Named("trackhistory")

	if meta, err := metadata.FromContext(ctx); err == nil {
		logger = logger.With("eventID", meta.EventID, "eventTime", meta.Timestamp)
	}
	logger = logger.With("document", e.DocumentPath())
	ctx = logging.WithLogger(ctx, logger)

	c, err := e.Change()
	if err != nil {
		logger.Errorf("Cannot decode event: %v", err)
		return err
	}

	record, err := d.tracker.Assemble(ctx, c)
	if err != nil {
		logger.Errorf("Cannot assemble history record: %v", err)
		return err
	}

	path, err := d.writer.Write(ctx, record)
	if err != nil {
		logger.Errorf("Cannot save history record: %v", err)
		return err
	}

	logger.Infof("Recorded %v of %v in %v", record.Type, record.Path, path)

	return nil
}
