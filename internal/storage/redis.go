package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Redis keeps each resource in one hash: {prefix}:{resource} -> id -> JSON.
type Redis struct {
	client goredis.UniversalClient
	prefix string
}

func NewRedis(client goredis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "rent"
	}
	return &Redis{client: client, prefix: prefix}
}

// DialRedis connects to a single Redis node and checks it answers.
func DialRedis(ctx context.Context, addr, password string, db int) (goredis.UniversalClient, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) key(resource string) string {
	return fmt.Sprintf("%s:%s", r.prefix, resource)
}

func (r *Redis) Get(ctx context.Context, resource, id string) (json.RawMessage, error) {
	data, err := r.client.HGet(ctx, r.key(resource), id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", resource, id, err)
	}
	return json.RawMessage(data), nil
}

func (r *Redis) List(ctx context.Context, resource string) (map[string]json.RawMessage, error) {
	all, err := r.client.HGetAll(ctx, r.key(resource)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	out := make(map[string]json.RawMessage, len(all))
	for id, data := range all {
		out[id] = json.RawMessage(data)
	}
	return out, nil
}

func (r *Redis) Create(ctx context.Context, resource string, record any) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode %s record: %w", resource, err)
	}
	id := uuid.NewString()
	if err := r.client.HSet(ctx, r.key(resource), id, data).Err(); err != nil {
		return "", fmt.Errorf("create %s record: %w", resource, err)
	}
	return id, nil
}

// Patch does an optimistic read-modify-write guarded by WATCH on the hash.
// maxPatchAttempts bounds the optimistic retries of Patch. Every record of a
// resource shares one watched hash, so writes to other ids abort the
// transaction too.
const maxPatchAttempts = 10

func (r *Redis) Patch(ctx context.Context, resource, id string, fields map[string]any) error {
	key := r.key(resource)
	patch := func(tx *goredis.Tx) error {
		current, err := tx.HGet(ctx, key, id).Bytes()
		if errors.Is(err, goredis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("patch %s/%s: %w", resource, id, err)
		}
		merged, err := mergeJSON(current, fields)
		if err != nil {
			return fmt.Errorf("patch %s/%s: %w", resource, id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, id, []byte(merged))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxPatchAttempts; attempt++ {
		err := r.client.Watch(ctx, patch, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("patch %s/%s: %w", resource, id, goredis.TxFailedErr)
}

func (r *Redis) Delete(ctx context.Context, resource, id string) error {
	if err := r.client.HDel(ctx, r.key(resource), id).Err(); err != nil {
		return fmt.Errorf("delete %s/%s: %w", resource, id, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
