/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"dirpx.dev/svx/apis"
)

// DefaultPrefix is prepended to every key stored in Redis.
const DefaultPrefix = "svx:"

// Redis is an apis.Cache backed by a Redis server, so discovery results
// survive process restarts. Entries are msgpack-encoded mappings.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// Ensure Redis implements apis.Cache.
var _ apis.Cache = (*Redis)(nil)

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix.
func WithPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// WithTTL expires entries after d. Zero keeps entries until invalidated.
func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRedis wraps client. The client is owned by the caller.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultPrefix, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("cache")
	return r
}

// GetOrCompute implements apis.Cache. An entry that cannot be decoded is
// recomputed and overwritten.
func (c *Redis) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (apis.Mapping, error)) (apis.Mapping, error) {
	if m, ok, err := c.get(ctx, key); err != nil || ok {
		return m, err
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if m, ok, err := c.get(ctx, key); err != nil || ok {
			return m, err
		}
		m, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		b, err := Encode(m)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, c.prefix+key, b, c.ttl).Err(); err != nil {
			return nil, fmt.Errorf("svx(cache): store %s: %w", key, err)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(apis.Mapping).Clone(), nil
}

// Invalidate implements apis.Cache.
func (c *Redis) Invalidate(ctx context.Context, key string) error {
	c.group.Forget(key)
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("svx(cache): invalidate %s: %w", key, err)
	}
	return nil
}

func (c *Redis) get(ctx context.Context, key string) (apis.Mapping, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("svx(cache): load %s: %w", key, err)
	}
	m, err := Decode(b)
	if err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return m, true, nil
}
