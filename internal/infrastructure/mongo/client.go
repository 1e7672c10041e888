package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	connectAttempts = 3
	retryInterval   = time.Second
)

var ErrConnect = errors.New("failed to connect to mongo")

// Connect opens a client against url and pings it, retrying a few times
// while the server comes up.
func Connect(ctx context.Context, url string) (*mongo.Client, error) {
	var lastErr error
	for range connectAttempts {
		client, err := mongo.Connect(options.Client().ApplyURI(url).SetConnectTimeout(5 * time.Second))
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnect, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
	return nil, errors.Join(ErrConnect, fmt.Errorf("after %d attempts: %w", connectAttempts, lastErr))
}
