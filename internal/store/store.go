package store

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Storer is a storage abstraction layer interface
type Storer interface {
	// Create writes a new document at path. It fails with codes.AlreadyExists when the document exists.
	Create(ctx context.Context, path string, data map[string]interface{}) error
}

// Client to interact with storage API
type Client struct {
	Firestore *firestore.Client
}

// Create writes a new document at path.
func (i Client) Create(ctx context.Context, path string, data map[string]interface{}) error {
	_, err := i.Firestore.Doc(path).Create(ctx, data)
	return err
}

// MockClient keeps documents in memory, for unit tests
type MockClient struct {
	mu   sync.Mutex
	Docs map[string]map[string]interface{}
	// Failures are returned by following Create calls, one per call, before any write happens.
	Failures []error
	Calls    int
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{Docs: map[string]map[string]interface{}{}}
}

// Create writes a new document at path.
func (i *MockClient) Create(_ context.Context, path string, data map[string]interface{}) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.Calls++
	if len(i.Failures) > 0 {
		err := i.Failures[0]
		i.Failures = i.Failures[1:]
		return err
	}

	if _, exists := i.Docs[path]; exists {
		return status.Errorf(codes.AlreadyExists, "document %v already exists", path)
	}
	i.Docs[path] = data
	return nil
}
