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

package svx

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/config"
)

// buildMu serializes writers of the default engine so a half-built engine
// is never published.
var buildMu sync.Mutex

// st is the process-wide default engine.
var st atomic.Pointer[Engine]

// Default returns the process-wide engine, building one from
// config.DefaultConfig on first use. The implicit engine logs nothing.
func Default() *Engine {
	if e := st.Load(); e != nil {
		return e
	}

	buildMu.Lock()
	defer buildMu.Unlock()
	if e := st.Load(); e != nil {
		return e
	}
	e, err := New(config.DefaultConfig(), WithLogger(zap.NewNop()))
	if err != nil {
		// DefaultConfig always validates.
		panic(err)
	}
	st.Store(e)
	return e
}

// SetDefault replaces the process-wide engine. A nil e is ignored.
func SetDefault(e *Engine) {
	if e == nil {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	st.Store(e)
}

// Configure builds an Engine from cfg and makes it the default.
func Configure(cfg apis.Config, opts ...Option) (*Engine, error) {
	e, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	SetDefault(e)
	return e, nil
}

// Dispatch dispatches svc with the default engine.
func Dispatch(ctx context.Context, svc any) (any, error) {
	return Default().Dispatch(ctx, svc)
}

// DispatchThrough dispatches svc through steps with the default engine.
func DispatchThrough(ctx context.Context, svc any, steps ...apis.Middleware) (any, error) {
	return Default().DispatchThrough(ctx, svc, steps...)
}

// HasHandler reports whether svc has a mapped handler in the default engine.
func HasHandler(svc any) bool {
	return Default().HasHandler(svc)
}

// Map registers explicit mappings in the default engine.
func Map(m apis.Mapping) error {
	return Default().Map(m)
}

// SetPipeline replaces the pipeline of the default engine.
func SetPipeline(steps ...apis.Middleware) {
	Default().SetPipeline(steps...)
}

// ResultTypeError is returned by Call when the dispatch result does not
// have the requested type.
type ResultTypeError struct {
	Service apis.Identity
	Want    string
	Got     any
}

func (e *ResultTypeError) Error() string {
	return fmt.Sprintf("svx: result of %s is %T, want %s", e.Service, e.Got, e.Want)
}

// Call dispatches svc with the default engine and returns its result as T.
func Call[T any](ctx context.Context, svc any) (T, error) {
	return CallWith[T](ctx, Default(), svc)
}

// CallWith dispatches svc through c and returns its result as T. Handlers
// that call other services take c as a dependency.
func CallWith[T any](ctx context.Context, c apis.Caller, svc any) (T, error) {
	var zero T
	out, err := c.Dispatch(ctx, svc)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		var id apis.Identity
		if e, isEngine := c.(*Engine); isEngine {
			id = e.Identity(svc)
		}
		return zero, &ResultTypeError{Service: id, Want: reflect.TypeFor[T]().String(), Got: out}
	}
	return v, nil
}
