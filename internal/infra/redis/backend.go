package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const stateKey = "quizapp:state"

// Backend keeps the whole state document as JSON under a single redis key.
type Backend struct {
	client *redis.Client
}

func NewBackend(client *redis.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, stateKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get state: %w", err)
	}
	return data, true, nil
}

func (b *Backend) Save(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, stateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}
