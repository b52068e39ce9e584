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

// Package cache provides apis.Cache stores for discovery results.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"dirpx.dev/svx/apis"
)

// Memory is an in-process apis.Cache. Entries live until invalidated.
// Concurrent misses on one key share a single compute.
type Memory struct {
	mu sync.RWMutex
	m  map[string]apis.Mapping
	// gens counts invalidations per key. A compute stores its result only
	// if no invalidation happened while it ran.
	gens  map[string]uint64
	group singleflight.Group
}

// Ensure Memory implements apis.Cache.
var _ apis.Cache = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]apis.Mapping), gens: make(map[string]uint64)}
}

// GetOrCompute implements apis.Cache. Callers get their own copy of the
// stored mapping.
func (c *Memory) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (apis.Mapping, error)) (apis.Mapping, error) {
	if m, ok := c.get(key); ok {
		return m.Clone(), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		m, ok := c.m[key]
		gen := c.gens[key]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}
		m, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		m = m.Clone()
		c.mu.Lock()
		if c.gens[key] == gen {
			c.m[key] = m
		}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(apis.Mapping).Clone(), nil
}

// Invalidate implements apis.Cache. A compute in flight for key still
// answers its callers but is not stored.
func (c *Memory) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)
	return nil
}

// Len returns the number of stored entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *Memory) get(key string) (apis.Mapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.m[key]
	return m, ok
}
