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
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/cache"
)

var sample = apis.Mapping{
	"App.Services.Definitions.CreatePostService": "App.Services.Handlers.CreatePostHandler",
}

func TestMemory_ComputeOnce(t *testing.T) {
	c := cache.NewMemory()
	var computed atomic.Int64
	compute := func(context.Context) (apis.Mapping, error) {
		computed.Add(1)
		return sample, nil
	}

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 4
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			m, err := c.GetOrCompute(context.Background(), "k", compute)
			if err != nil || len(m) != 1 {
				t.Errorf("GetOrCompute = (%v, %v)", m, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), computed.Load())
	assert.Equal(t, 1, c.Len())
}

func TestMemory_CopiesAndInvalidate(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (apis.Mapping, error) {
		calls++
		return sample, nil
	}

	m, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	m["App.Injected"] = "App.Nope"

	m, err = c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, sample, m, "stored entry is isolated from callers")
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Invalidate(ctx, "k"))
	_, err = c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMemory_ErrorNotStored(t *testing.T) {
	c := cache.NewMemory()
	boom := errors.New("boom")
	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (apis.Mapping, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	m, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (apis.Mapping, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestMemory_InvalidateDuringCompute(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64

	done := make(chan apis.Mapping, 1)
	go func() {
		m, err := c.GetOrCompute(ctx, "k", func(context.Context) (apis.Mapping, error) {
			calls.Add(1)
			close(started)
			<-release
			return sample, nil
		})
		if err != nil {
			t.Errorf("GetOrCompute: %v", err)
		}
		done <- m
	}()

	<-started
	require.NoError(t, c.Invalidate(ctx, "k"))
	close(release)

	assert.Equal(t, sample, <-done, "callers of the stale compute still get its result")
	assert.Equal(t, 0, c.Len(), "a result computed across an invalidation is not stored")

	fresh := apis.Mapping{"App.Services.Definitions.EditPostService": "App.Services.Handlers.EditPostHandler"}
	m, err := c.GetOrCompute(ctx, "k", func(context.Context) (apis.Mapping, error) {
		calls.Add(1)
		return fresh, nil
	})
	require.NoError(t, err)
	assert.Equal(t, fresh, m)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, 1, c.Len())
}
