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

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/cache"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_SurvivesRestart(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (apis.Mapping, error) {
		calls++
		return sample, nil
	}

	m, err := cache.NewRedis(client).GetOrCompute(ctx, "svx.handlers", compute)
	require.NoError(t, err)
	assert.Equal(t, sample, m)
	assert.True(t, mr.Exists("svx:svx.handlers"))

	// A fresh store stands in for a new process.
	m, err = cache.NewRedis(client).GetOrCompute(ctx, "svx.handlers", compute)
	require.NoError(t, err)
	assert.Equal(t, sample, m)
	assert.Equal(t, 1, calls)
}

func TestRedis_Invalidate(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	c := cache.NewRedis(client, cache.WithPrefix("app:"))
	calls := 0
	compute := func(context.Context) (apis.Mapping, error) {
		calls++
		return sample, nil
	}

	_, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	require.True(t, mr.Exists("app:k"))

	require.NoError(t, c.Invalidate(ctx, "k"))
	assert.False(t, mr.Exists("app:k"))

	_, err = c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRedis_TTL(t *testing.T) {
	mr, client := newRedis(t)
	c := cache.NewRedis(client, cache.WithTTL(time.Minute))
	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (apis.Mapping, error) { return sample, nil })
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("svx:k"))
}

func TestRedis_UndecodableEntry(t *testing.T) {
	mr, client := newRedis(t)
	require.NoError(t, mr.Set("svx:k", "garbage"))

	m, err := cache.NewRedis(client).GetOrCompute(context.Background(), "k", func(context.Context) (apis.Mapping, error) {
		return sample, nil
	})
	require.NoError(t, err)
	assert.Equal(t, sample, m)

	raw, err := mr.Get("svx:k")
	require.NoError(t, err)
	decoded, err := cache.Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, sample, decoded, "entry overwritten")
}

func TestRedis_Unavailable(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	_, err := cache.NewRedis(client).GetOrCompute(context.Background(), "k", func(context.Context) (apis.Mapping, error) {
		t.Fatal("compute must not run when the store is unreachable")
		return nil, nil
	})
	assert.Error(t, err)
}
