// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

package kvstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store on a Redis server. MultiSet issues MSET inside MULTI/EXEC.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// OpenRedis connects to addr and verifies the connection with PING. addr may be a
// host:port pair or a redis:// URL.
func OpenRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	opts := &redis.Options{Addr: addr}
	if parsed, err := redis.ParseURL(addr); err == nil {
		opts = parsed
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable("redis ping", err)
	}
	return NewRedis(client, prefix), nil
}

// NewRedis wraps an existing client. Keys are stored as prefix+key.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) MultiSet(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	values := make([]any, 0, len(pairs)*2)
	for k, v := range pairs {
		values = append(values, r.prefix+k, v)
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.MSet(ctx, values...)
		return nil
	})
	if err != nil {
		return unavailable("redis multiset", err)
	}
	return nil
}

func (r *Redis) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, unavailable("redis multiget", err)
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

func (r *Redis) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return unavailable("redis multiremove", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
