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
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/builder"
	"dirpx.dev/svx/cache"
	"dirpx.dev/svx/cache/driver"
	"dirpx.dev/svx/config"
	"dirpx.dev/svx/contract"
	"dirpx.dev/svx/discovery"
	"dirpx.dev/svx/dispatcher"
	"dirpx.dev/svx/registry"
)

// ErrAutoloadDisabled is returned by Watch when discovery is turned off.
var ErrAutoloadDisabled = errors.New("svx: autoload is disabled")

// Engine wires discovery, the handler registry and the dispatcher for one
// Config. It is safe for concurrent use.
type Engine struct {
	cfg        apis.Config
	logger     *zap.Logger
	types      apis.TypeRegistry
	reg        apis.Registry
	scanner    *discovery.Scanner
	dispatcher *dispatcher.Dispatcher
	metrics    *dispatcher.Metrics
	client     *redis.Client

	// loadMu is the population barrier: one writer discovers at a time.
	loadMu sync.Mutex
	loaded atomic.Bool
}

// Ensure Engine implements apis.Caller.
var _ apis.Caller = (*Engine)(nil)

type options struct {
	logger     *zap.Logger
	inst       apis.Instantiator
	cache      apis.Cache
	enum       apis.Enumerator
	probe      apis.Probe
	types      apis.TypeRegistry
	builder    apis.Builder
	registerer prometheus.Registerer
	contracts  *contract.Registry
	pipeline   []apis.Middleware
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. By default the Engine builds a production
// logger at Config.LogLevel.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInstantiator sets the capability that builds handler instances.
func WithInstantiator(i apis.Instantiator) Option {
	return func(o *options) { o.inst = i }
}

// WithCache sets the store discovery results persist in when Config.Cache
// is enabled. Defaults to an in-memory store.
func WithCache(c apis.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithEnumerator sets the filesystem the definitions are read from.
func WithEnumerator(e apis.Enumerator) Option {
	return func(o *options) { o.enum = e }
}

// WithProbe sets the self-handling probe used by discovery.
func WithProbe(p apis.Probe) Option {
	return func(o *options) { o.probe = p }
}

// WithTypes sets the type registry consulted when deriving identities.
func WithTypes(t apis.TypeRegistry) Option {
	return func(o *options) { o.types = t }
}

// WithBuilder sets the builder of the handler registry and identity resolver.
func WithBuilder(b apis.Builder) Option {
	return func(o *options) { o.builder = b }
}

// WithRegisterer enables dispatch metrics registered with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithContracts sets the dispatch contracts Config.DispatchMethod is looked up in.
func WithContracts(r *contract.Registry) Option {
	return func(o *options) { o.contracts = r }
}

// WithPipeline sets the initial middleware pipeline.
func WithPipeline(steps ...apis.Middleware) Option {
	return func(o *options) { o.pipeline = steps }
}

// New validates cfg and builds an Engine. Discovery does not run until Load
// or the first call that needs the mapping.
func New(cfg apis.Config, opts ...Option) (*Engine, error) {
	cfg = config.Clone(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		l, err := newLogger(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	b := o.builder
	if b == nil {
		b = builder.New()
	}
	types := o.types
	if types == nil {
		types = registry.NewTypes(cfg.MaxUnwrap)
	}
	reg, err := b.BuildRegistry(cfg, nil)
	if err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, logger: logger, types: types, reg: reg}

	dopts := []dispatcher.Option{dispatcher.WithLogger(logger), dispatcher.WithPipeline(o.pipeline...)}
	if o.contracts != nil {
		dopts = append(dopts, dispatcher.WithContracts(o.contracts))
	}
	if o.registerer != nil {
		if e.metrics, err = dispatcher.NewMetrics(o.registerer); err != nil {
			return nil, err
		}
		dopts = append(dopts, dispatcher.WithMetrics(e.metrics))
	}
	if e.dispatcher, err = dispatcher.New(reg, b.BuildResolver(cfg, types), o.inst, cfg, dopts...); err != nil {
		return nil, err
	}

	if !cfg.Autoload {
		e.loaded.Store(true)
		return e, nil
	}
	store := o.cache
	if store == nil && cfg.Cache {
		store = e.openCache()
	}
	e.scanner = discovery.New(cfg,
		discovery.WithEnumerator(o.enum),
		discovery.WithProbe(o.probe),
		discovery.WithCache(store),
		discovery.WithLogger(logger),
	)
	return e, nil
}

// openCache builds the store selected by Config.CacheDriver. A Redis client
// opened here is owned by the Engine and released by Close.
func (e *Engine) openCache() apis.Cache {
	switch e.cfg.CacheDriver {
	case driver.Redis:
		e.client = redis.NewClient(&redis.Options{Addr: e.cfg.RedisAddr})
		return cache.NewRedis(e.client, cache.WithLogger(e.logger))
	default:
		return cache.NewMemory()
	}
}

// Close releases resources the Engine opened itself.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, &apis.ConfigurationError{Option: "LogLevel", Reason: err.Error()}
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// Config returns the configuration the Engine was built with.
func (e *Engine) Config() apis.Config {
	return config.Clone(e.cfg)
}

// Registry returns the handler registry.
func (e *Engine) Registry() apis.Registry {
	return e.reg
}

// Load runs discovery once and publishes the discovered mapping. Later
// calls are no-ops; use Reload to rediscover.
func (e *Engine) Load(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if e.loaded.Load() {
		return nil
	}
	return e.populate(ctx)
}

// Reload drops the cached discovery result and rediscovers. Readers keep
// the previous mapping until the new one is published.
func (e *Engine) Reload(ctx context.Context) error {
	if e.scanner == nil {
		return nil
	}
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if err := e.scanner.Invalidate(ctx); err != nil {
		return err
	}
	return e.populate(ctx)
}

// populate must be called with loadMu held.
func (e *Engine) populate(ctx context.Context) error {
	dir := config.DefinitionsDir(e.cfg)
	m, err := e.scanner.Discover(ctx, dir)
	if err != nil {
		return err
	}
	if err := e.reg.SetDiscovered(m); err != nil {
		return err
	}
	e.metrics.SetDiscovered(len(m))
	e.loaded.Store(true)
	e.logger.Info("handler mappings discovered", zap.String("dir", dir), zap.Int("mappings", len(m)))
	return nil
}

func (e *Engine) ensureLoaded(ctx context.Context) error {
	if e.loaded.Load() {
		return nil
	}
	return e.Load(ctx)
}

// Watch reloads the mapping whenever the definitions directory changes,
// until ctx is done. The initial mapping is loaded first.
func (e *Engine) Watch(ctx context.Context, opts ...discovery.WatcherOption) error {
	if e.scanner == nil {
		return ErrAutoloadDisabled
	}
	if err := e.ensureLoaded(ctx); err != nil {
		return err
	}
	opts = append([]discovery.WatcherOption{discovery.WithWatcherLogger(e.logger)}, opts...)
	return discovery.NewWatcher(opts...).Watch(ctx, config.DefinitionsDir(e.cfg), func(ctx context.Context) {
		if err := e.Reload(ctx); err != nil {
			e.logger.Warn("reload after definitions change failed", zap.Error(err))
		}
	})
}

// Dispatch implements apis.Caller.
func (e *Engine) Dispatch(ctx context.Context, svc any) (any, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return e.dispatcher.Dispatch(ctx, svc)
}

// DispatchThrough dispatches svc through steps instead of the configured
// pipeline.
func (e *Engine) DispatchThrough(ctx context.Context, svc any, steps ...apis.Middleware) (any, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return e.dispatcher.DispatchThrough(ctx, svc, steps...)
}

// HasHandler reports whether svc has a mapped handler. A failed lazy
// discovery is logged and reported as false.
func (e *Engine) HasHandler(svc any) bool {
	if err := e.ensureLoaded(context.Background()); err != nil {
		e.logger.Warn("discovery failed", zap.Error(err))
		return false
	}
	return e.dispatcher.HasHandler(svc)
}

// ResolveHandler instantiates the mapped handler of svc.
func (e *Engine) ResolveHandler(ctx context.Context, svc any) (any, bool, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, false, err
	}
	return e.dispatcher.ResolveHandler(ctx, svc)
}

// Map registers explicit mappings. They take precedence over discovered
// ones, including those of later reloads.
func (e *Engine) Map(m apis.Mapping) error {
	return e.reg.Map(m)
}

// SetPipeline replaces the middleware pipeline.
func (e *Engine) SetPipeline(steps ...apis.Middleware) {
	e.dispatcher.SetPipeline(steps...)
}

// Mappings returns the effective mapping currently published. It does not
// trigger discovery.
func (e *Engine) Mappings() apis.Mapping {
	return e.reg.Entries()
}

// Identity returns the service identity derived for v.
func (e *Engine) Identity(v any) apis.Identity {
	return e.dispatcher.Identity(v)
}

// RegisterType pins the identity of values of type t.
func (e *Engine) RegisterType(t reflect.Type, id apis.Identity) error {
	return e.types.Register(t, id)
}
