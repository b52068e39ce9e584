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

// Package dispatcher resolves the invocation target of a service and calls
// it, optionally through a middleware pipeline.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/contract"
	"dirpx.dev/svx/pipeline"
	"dirpx.dev/svx/resolver"
	"dirpx.dev/svx/strategy"
)

var (
	// ErrNilRegistry is returned when constructing a Dispatcher without a Registry.
	ErrNilRegistry = errors.New("svx(dispatcher): nil registry")
	// ErrNoInstantiator is wrapped when a mapped handler must be instantiated
	// but no Instantiator was provided.
	ErrNoInstantiator = errors.New("svx(dispatcher): no instantiator")
)

// Dispatcher routes services to handlers. Each call is stateless given the
// current Registry contents; it is safe for concurrent use.
type Dispatcher struct {
	cfg      apis.Config
	reg      apis.Registry
	ids      apis.Resolver
	inst     apis.Instantiator
	contract apis.Contract

	contracts *contract.Registry
	pipeline  atomic.Pointer[pipeline.Pipeline]
	logger    *zap.Logger
	metrics   *Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records dispatches in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithContracts sets the contract registry the dispatch method is looked up in.
func WithContracts(r *contract.Registry) Option {
	return func(d *Dispatcher) { d.contracts = r }
}

// WithPipeline sets the initial pipeline.
func WithPipeline(steps ...apis.Middleware) Option {
	return func(d *Dispatcher) { d.pipeline.Store(pipeline.New(steps...)) }
}

// New constructs a Dispatcher. ids derives service identities and defaults
// to the Identifier and reflection strategies. inst may be nil when every
// service is self-handling.
func New(reg apis.Registry, ids apis.Resolver, inst apis.Instantiator, cfg apis.Config, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if ids == nil {
		ids = resolver.New(strategy.NewIdentifierStrategy(), strategy.NewReflectStrategy())
	}
	d := &Dispatcher{cfg: cfg, reg: reg, ids: ids, inst: inst, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.contracts == nil {
		d.contracts, _ = contract.NewRegistry()
	}
	c, err := d.contracts.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	d.contract = c
	d.logger = d.logger.Named("dispatcher")
	return d, nil
}

// Identity returns the service identity of svc, or "" when none derives.
func (d *Dispatcher) Identity(svc any) apis.Identity {
	return d.ids.Resolve(svc, d.cfg)
}

// Dispatch runs svc through the configured pipeline and invokes the
// dispatch method of its handler, or of svc itself when it has no mapped
// handler. The result of the method is returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, svc any) (any, error) {
	return d.dispatch(ctx, svc, d.pipeline.Load())
}

// DispatchThrough is Dispatch with steps replacing the configured pipeline
// for this call only.
func (d *Dispatcher) DispatchThrough(ctx context.Context, svc any, steps ...apis.Middleware) (any, error) {
	return d.dispatch(ctx, svc, pipeline.New(steps...))
}

// SetPipeline replaces the configured pipeline. Calls in flight keep the
// pipeline they started with.
func (d *Dispatcher) SetPipeline(steps ...apis.Middleware) {
	d.pipeline.Store(pipeline.New(steps...))
}

// HasHandler reports whether svc has a mapped handler. Self-handling
// services report false.
func (d *Dispatcher) HasHandler(svc any) bool {
	return d.reg.HasHandler(d.Identity(svc))
}

// ResolveHandler instantiates the mapped handler of svc. ok is false when
// svc has no mapped handler.
func (d *Dispatcher) ResolveHandler(ctx context.Context, svc any) (handler any, ok bool, err error) {
	id := d.Identity(svc)
	h, ok := d.reg.Resolve(id)
	if !ok {
		return nil, false, nil
	}
	v, _, err := d.instantiate(ctx, id, h)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, svc any, p *pipeline.Pipeline) (any, error) {
	start := time.Now()
	id := d.Identity(svc)

	inv, target, err := d.target(ctx, id, svc)
	if err != nil {
		outcome := OutcomeError
		var nf *apis.HandlerNotFoundError
		var ur *apis.UnresolvableHandlerTypeError
		switch {
		case errors.As(err, &nf):
			outcome = OutcomeNotFound
		case errors.As(err, &ur):
			outcome = OutcomeUnresolvable
		}
		d.logger.Warn("dispatch target unresolved", zap.Stringer("service", id), zap.Error(err))
		d.metrics.observe(outcome, TargetNone, start)
		return nil, err
	}

	out, err := p.Then(ctx, svc, inv)
	if err != nil {
		outcome := OutcomeError
		var v *apis.PipelineContractViolation
		if errors.As(err, &v) {
			outcome = OutcomeViolation
			d.logger.Warn("pipeline contract violated", zap.Stringer("service", id),
				zap.Int("step", v.Step), zap.Int("calls", v.Calls))
		}
		d.metrics.observe(outcome, target, start)
		return nil, err
	}
	d.metrics.observe(OutcomeOK, target, start)
	return out, nil
}

// target selects the invocation: the mapped handler first, then svc itself.
func (d *Dispatcher) target(ctx context.Context, id apis.Identity, svc any) (apis.Invocation, string, error) {
	if h, ok := d.reg.Resolve(id); ok {
		_, inv, err := d.instantiate(ctx, id, h)
		if err != nil {
			return nil, TargetHandler, err
		}
		d.logger.Debug("resolved handler", zap.Stringer("service", id), zap.Stringer("handler", h))
		return inv, TargetHandler, nil
	}
	if inv, ok := d.contract.Self(svc); ok {
		d.logger.Debug("service handles itself", zap.Stringer("service", id))
		return inv, TargetSelf, nil
	}
	return nil, TargetNone, &apis.HandlerNotFoundError{Service: id}
}

func (d *Dispatcher) instantiate(ctx context.Context, id, h apis.Identity) (any, apis.Invocation, error) {
	if d.inst == nil {
		return nil, nil, &apis.UnresolvableHandlerTypeError{Service: id, Handler: h, Err: ErrNoInstantiator}
	}
	v, err := d.inst.Instantiate(ctx, h)
	if err != nil {
		return nil, nil, &apis.UnresolvableHandlerTypeError{Service: id, Handler: h, Err: err}
	}
	inv, ok := d.contract.Handler(v)
	if !ok {
		return nil, nil, &apis.UnresolvableHandlerTypeError{
			Service: id,
			Handler: h,
			Err:     fmt.Errorf("%w: %T has no %s method", apis.ErrContractNotSatisfied, v, d.contract.Method()),
		}
	}
	return v, inv, nil
}
