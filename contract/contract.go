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

// Package contract binds the configured dispatch method name to the Go
// interfaces a handler or a self-handling service must implement.
package contract

import (
	"context"
	"errors"
	"sync"

	"dirpx.dev/svx/apis"
)

var (
	// ErrEmptyMethod is returned when registering a contract without a name.
	ErrEmptyMethod = errors.New("svx(contract): empty method name")
	// ErrConflictingContract indicates an attempt to replace a registered contract.
	ErrConflictingContract = errors.New("svx(contract): conflicting contract registration")
)

// Func is an apis.Contract assembled from two type assertions.
type Func struct {
	// Name is the dispatch method name.
	Name string
	// BindHandler binds the method on a handler instance.
	BindHandler func(target any) (apis.Invocation, bool)
	// BindSelf binds the method on a self-handling service.
	BindSelf func(service any) (apis.Invocation, bool)
}

// Ensure Func implements apis.Contract.
var _ apis.Contract = (*Func)(nil)

// Method implements apis.Contract.
func (f Func) Method() string { return f.Name }

// Handler implements apis.Contract.
func (f Func) Handler(target any) (apis.Invocation, bool) {
	if f.BindHandler == nil || target == nil {
		return nil, false
	}
	return f.BindHandler(target)
}

// Self implements apis.Contract.
func (f Func) Self(service any) (apis.Invocation, bool) {
	if f.BindSelf == nil || service == nil {
		return nil, false
	}
	return f.BindSelf(service)
}

// Run is the built-in contract for apis.Handler and apis.SelfHandler.
var Run apis.Contract = &Func{
	Name: apis.DefaultDispatchMethod,
	BindHandler: func(target any) (apis.Invocation, bool) {
		h, ok := target.(apis.Handler)
		if !ok {
			return nil, false
		}
		return h.Run, true
	},
	BindSelf: func(service any) (apis.Invocation, bool) {
		s, ok := service.(apis.SelfHandler)
		if !ok {
			return nil, false
		}
		// The transformed service is the one that runs itself.
		return func(ctx context.Context, svc any) (any, error) {
			if t, ok := svc.(apis.SelfHandler); ok {
				return t.Run(ctx)
			}
			return s.Run(ctx)
		}, true
	},
}

// Registry maps dispatch method names to contracts.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[string]apis.Contract
}

// NewRegistry returns a Registry holding the built-in Run contract and cs.
func NewRegistry(cs ...apis.Contract) (*Registry, error) {
	r := &Registry{m: map[string]apis.Contract{Run.Method(): Run}}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds c under c.Method(). Registering the same contract twice is a
// no-op; contracts are compared by identity, so register *Func values.
func (r *Registry) Register(c apis.Contract) error {
	if c == nil || c.Method() == "" {
		return ErrEmptyMethod
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.m[c.Method()]; ok {
		if sameContract(old, c) {
			return nil
		}
		return ErrConflictingContract
	}
	r.m[c.Method()] = c
	return nil
}

// Lookup returns the contract registered for method.
func (r *Registry) Lookup(method string) (apis.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[method]
	return c, ok
}

// Resolve returns the contract for cfg.DispatchMethod, or a
// *apis.ConfigurationError if none is registered.
func (r *Registry) Resolve(cfg apis.Config) (apis.Contract, error) {
	if c, ok := r.Lookup(cfg.DispatchMethod); ok {
		return c, nil
	}
	return nil, &apis.ConfigurationError{
		Option: "DispatchMethod",
		Reason: "no contract registered for method " + cfg.DispatchMethod,
	}
}

// sameContract compares contracts without panicking on uncomparable values.
func sameContract(a, b apis.Contract) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
