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

package apis

import "context"

// DefaultDispatchMethod is the contract used when none is configured.
const DefaultDispatchMethod = "Run"

// Handler executes a service on its behalf.
type Handler interface {
	Run(ctx context.Context, service any) (any, error)
}

// SelfHandler is a service that executes itself.
type SelfHandler interface {
	Run(ctx context.Context) (any, error)
}

// Invocation is a bound call of the dispatch method. It receives the
// (possibly pipeline-transformed) service.
type Invocation func(ctx context.Context, service any) (any, error)

// Contract describes how the dispatch method is invoked on a target.
type Contract interface {
	// Method is the dispatch method name the contract stands for.
	Method() string
	// Handler binds the dispatch method of a handler instance.
	Handler(target any) (Invocation, bool)
	// Self binds the dispatch method of a self-handling service.
	// ok reports whether service satisfies the contract at all.
	Self(service any) (Invocation, bool)
}

// Next passes control to the rest of a pipeline.
type Next func(ctx context.Context, service any) (any, error)

// Middleware inspects or transforms a service before dispatch. It must call
// next exactly once unless it fails.
type Middleware func(ctx context.Context, service any, next Next) (any, error)

// Instantiator produces an instance for a type identity. Dependency
// resolution is the implementation's concern.
type Instantiator interface {
	Instantiate(ctx context.Context, id Identity) (any, error)
}

// InstantiatorFunc adapts a function to Instantiator.
type InstantiatorFunc func(ctx context.Context, id Identity) (any, error)

// Instantiate implements Instantiator.
func (f InstantiatorFunc) Instantiate(ctx context.Context, id Identity) (any, error) {
	return f(ctx, id)
}

// Caller dispatches services. Handlers that need to call other services
// depend on it instead of a concrete engine.
type Caller interface {
	Dispatch(ctx context.Context, service any) (any, error)
}
