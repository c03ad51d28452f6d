package firebase

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/docshistory/histories-backend/internal/constants"
	"github.com/docshistory/histories-backend/internal/logging"
)

var (
	mu              sync.Mutex
	firestoreClient *firestore.Client
)

// FirestoreClient returns the shared Firestore client of the project, creating it on first use.
// A failed attempt is retried by the next call. The "NOOP" project has no client.
func FirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	mu.Lock()
	defer mu.Unlock()

	if firestoreClient != nil {
		return firestoreClient, nil
	}

	logger := logging.FromContext(ctx).Named("firebase.FirestoreClient")

	if projectID == constants.NoopProjectID {
		return nil, fmt.Errorf("firebase is disabled for project %v", projectID)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %v", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %v", err)
	}

	logger.Debugf("Connected to Firestore of project %v", projectID)
	firestoreClient = client
	return firestoreClient, nil
}
