package mongo

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Connector owns the process-wide client. Client connects on first use and
// returns the same handle afterwards; a failed attempt is not cached, so the
// next caller tries again.
type Connector struct {
	url    string
	mu     sync.Mutex
	client *mongo.Client
}

func NewConnector(url string) *Connector {
	return &Connector{url: url}
}

func (c *Connector) Client(ctx context.Context) (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := Connect(ctx, c.url)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

// Close disconnects the client if one was opened.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	return err
}
