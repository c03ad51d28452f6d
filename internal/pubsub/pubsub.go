package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"cloud.google.com/go/pubsub"
)

//EventPublisher is an abstraction over PubSub
type EventPublisher interface {
	Publish(ctx context.Context, topic string, msg interface{}) error
}

//Client Real PubSub client.
type Client struct {
	PubSub *pubsub.Client
}

//NewClient Creates PubSub client of the project.
func NewClient(ctx context.Context, projectID string) (*Client, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Client{PubSub: client}, nil
}

//Publish Publish message to some topic.
func (c *Client) Publish(ctx context.Context, topic string, msg interface{}) error {
	var t = c.PubSub.Topic(topic)
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	result := t.Publish(ctx, &pubsub.Message{Data: payload})

	// The Get method blocks until a server-generated ID or
	// an error is returned for the published message.
	_, err = result.Get(ctx)
	return err
}

//MockClient In-memory PubSub client.
type MockClient struct {
	mu sync.Mutex
	//Published JSON payloads per topic.
	Published map[string][][]byte
}

//Publish Publish message to some topic.
func (c *MockClient) Publish(_ context.Context, topic string, msg interface{}) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Published == nil {
		c.Published = map[string][][]byte{}
	}
	c.Published[topic] = append(c.Published[topic], payload)
	return nil
}
