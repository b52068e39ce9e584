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

// Package container is a small instantiation capability: it maps handler
// identities to constructors. Dependency wiring stays inside the
// constructors, which may resolve other identities from the same container.
package container

import (
	"context"
	"errors"
	"slices"
	"sync"

	"dirpx.dev/svx/apis"
)

// Scope defines the lifetime and sharing behavior of an instance.
type Scope string

const (
	// ScopeTransient creates a new instance for each resolution.
	ScopeTransient Scope = "transient"
	// ScopeSingleton shares a single instance across the container.
	ScopeSingleton Scope = "singleton"
)

// ErrInvalidBinding is returned for a binding with no identity or factory.
var ErrInvalidBinding = errors.New("svx(container): binding needs an identity and a factory")

// Factory constructs an instance. ctx carries the resolution path, so a
// factory resolving its own dependencies must pass it on.
type Factory func(ctx context.Context, c *Container) (any, error)

// Container resolves identities to instances. It is safe for concurrent use.
type Container struct {
	mu       sync.RWMutex
	bindings map[apis.Identity]*binding
}

type binding struct {
	scope   Scope
	factory Factory

	// mu guards instance for singletons.
	mu       sync.Mutex
	instance any
}

// Ensure Container implements apis.Instantiator.
var _ apis.Instantiator = (*Container)(nil)

// New returns an empty Container.
func New() *Container {
	return &Container{bindings: make(map[apis.Identity]*binding)}
}

// Bind registers f for id under scope, replacing any previous binding.
func (c *Container) Bind(id apis.Identity, scope Scope, f Factory) error {
	if !id.Valid() || f == nil {
		return ErrInvalidBinding
	}
	if scope != ScopeSingleton {
		scope = ScopeTransient
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[id] = &binding{scope: scope, factory: f}
	return nil
}

// BindTransient registers a constructor producing a fresh T per resolution.
func BindTransient[T any](c *Container, id apis.Identity, f func(ctx context.Context, c *Container) (T, error)) error {
	return c.Bind(id, ScopeTransient, erase(f))
}

// BindSingleton registers a constructor whose T is built once and shared.
func BindSingleton[T any](c *Container, id apis.Identity, f func(ctx context.Context, c *Container) (T, error)) error {
	return c.Bind(id, ScopeSingleton, erase(f))
}

// Has reports whether id is bound.
func (c *Container) Has(id apis.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[id]
	return ok
}

// Instantiate implements apis.Instantiator.
func (c *Container) Instantiate(ctx context.Context, id apis.Identity) (any, error) {
	c.mu.RLock()
	b, ok := c.bindings[id]
	c.mu.RUnlock()
	if !ok {
		return nil, &BindingNotFoundError{Identity: id}
	}

	path, _ := ctx.Value(pathKey{}).([]apis.Identity)
	if slices.Contains(path, id) {
		return nil, &CircularDependencyError{Path: append(slices.Clone(path), id)}
	}
	ctx = context.WithValue(ctx, pathKey{}, append(slices.Clone(path), id))

	if b.scope == ScopeTransient {
		return c.build(ctx, id, b)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance != nil {
		return b.instance, nil
	}
	// A failed build is not cached; the next resolution retries.
	v, err := c.build(ctx, id, b)
	if err != nil {
		return nil, err
	}
	b.instance = v
	return v, nil
}

// Resolve instantiates id and asserts the instance to T.
func Resolve[T any](ctx context.Context, c *Container, id apis.Identity) (T, error) {
	var zero T
	v, err := c.Instantiate(ctx, id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &InitializationError{Identity: id, Err: errors.New("instance has an unexpected type")}
	}
	return t, nil
}

func (c *Container) build(ctx context.Context, id apis.Identity, b *binding) (any, error) {
	v, err := b.factory(ctx, c)
	if err != nil {
		var cyc *CircularDependencyError
		if errors.As(err, &cyc) {
			return nil, err
		}
		return nil, &InitializationError{Identity: id, Err: err}
	}
	if v == nil {
		return nil, &NilInstanceError{Identity: id}
	}
	return v, nil
}

// pathKey carries the identities being resolved on the current call chain.
type pathKey struct{}

func erase[T any](f func(ctx context.Context, c *Container) (T, error)) Factory {
	if f == nil {
		return nil
	}
	return func(ctx context.Context, c *Container) (any, error) {
		return f(ctx, c)
	}
}
