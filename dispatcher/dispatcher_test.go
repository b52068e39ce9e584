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

package dispatcher_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/config"
	"dirpx.dev/svx/container"
	"dirpx.dev/svx/contract"
	"dirpx.dev/svx/dispatcher"
	"dirpx.dev/svx/registry"
)

const (
	createPostID  apis.Identity = "App.Services.Definitions.CreatePostService"
	createPostHID apis.Identity = "App.Services.Handlers.CreatePostHandler"
	customHID     apis.Identity = "App.Services.Handlers.CustomCreatePostHandler"
	pingID        apis.Identity = "App.Services.Definitions.PingService"
	orphanID      apis.Identity = "App.Services.Definitions.OrphanService"
)

// CreatePostService is handled by CreatePostHandler and collects a log.
type CreatePostService struct {
	Title string
	Log   []string
}

func (*CreatePostService) Identity() apis.Identity { return createPostID }

type CreatePostHandler struct{ name string }

func (h *CreatePostHandler) Run(_ context.Context, svc any) (any, error) {
	s := svc.(*CreatePostService)
	s.Log = append(s.Log, h.name)
	return "created " + s.Title, nil
}

// PingService handles itself.
type PingService struct{}

func (PingService) Identity() apis.Identity          { return pingID }
func (PingService) Run(context.Context) (any, error) { return "pong", nil }

// OrphanService has neither a handler nor a Run method.
type OrphanService struct{}

func (OrphanService) Identity() apis.Identity { return orphanID }

// notAHandler lacks the dispatch method.
type notAHandler struct{}

type fixture struct {
	reg     apis.Registry
	box     *container.Container
	metrics *dispatcher.Metrics
	promReg *prometheus.Registry
	logs    *observer.ObservedLogs
	d       *dispatcher.Dispatcher
}

func newFixture(t *testing.T, cfg apis.Config, opts ...dispatcher.Option) *fixture {
	t.Helper()
	f := &fixture{reg: registry.New(), box: container.New(), promReg: prometheus.NewRegistry()}

	require.NoError(t, f.reg.SetDiscovered(apis.Mapping{createPostID: createPostHID}))
	require.NoError(t, container.BindTransient(f.box, createPostHID, func(context.Context, *container.Container) (*CreatePostHandler, error) {
		return &CreatePostHandler{name: "handler"}, nil
	}))
	require.NoError(t, container.BindTransient(f.box, customHID, func(context.Context, *container.Container) (*CreatePostHandler, error) {
		return &CreatePostHandler{name: "custom"}, nil
	}))

	var err error
	f.metrics, err = dispatcher.NewMetrics(f.promReg)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	opts = append([]dispatcher.Option{dispatcher.WithLogger(zap.New(core)), dispatcher.WithMetrics(f.metrics)}, opts...)
	f.d, err = dispatcher.New(f.reg, nil, f.box, cfg, opts...)
	require.NoError(t, err)
	return f
}

func TestDispatch_MappedHandler(t *testing.T) {
	f := newFixture(t, config.NewConfig())

	svc := &CreatePostService{Title: "hello"}
	out, err := f.d.Dispatch(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, "created hello", out)
	assert.Equal(t, []string{"handler"}, svc.Log)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dispatches.WithLabelValues(dispatcher.OutcomeOK, dispatcher.TargetHandler)))
}

func TestDispatch_ExplicitOverridesDiscovered(t *testing.T) {
	f := newFixture(t, config.NewConfig())
	require.NoError(t, f.reg.Map(apis.Mapping{createPostID: customHID}))

	svc := &CreatePostService{}
	_, err := f.d.Dispatch(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, svc.Log)
}

func TestDispatch_SelfHandling(t *testing.T) {
	f := newFixture(t, config.NewConfig())

	out, err := f.d.Dispatch(context.Background(), PingService{})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.False(t, f.d.HasHandler(PingService{}))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dispatches.WithLabelValues(dispatcher.OutcomeOK, dispatcher.TargetSelf)))
}

func TestDispatch_HandlerNotFound(t *testing.T) {
	f := newFixture(t, config.NewConfig())

	_, err := f.d.Dispatch(context.Background(), OrphanService{})
	var nf *apis.HandlerNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, orphanID, nf.Service)
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dispatches.WithLabelValues(dispatcher.OutcomeNotFound, dispatcher.TargetNone)))

	_, err = f.d.Dispatch(context.Background(), nil)
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, apis.Identity(""), nf.Service)
}

func TestDispatch_UnresolvableHandler(t *testing.T) {
	f := newFixture(t, config.NewConfig())
	require.NoError(t, f.reg.Map(apis.Mapping{createPostID: "App.Services.Handlers.GoneHandler"}))

	_, err := f.d.Dispatch(context.Background(), &CreatePostService{})
	var ur *apis.UnresolvableHandlerTypeError
	require.True(t, errors.As(err, &ur))
	assert.Equal(t, apis.Identity("App.Services.Handlers.GoneHandler"), ur.Handler)
	var nb *container.BindingNotFoundError
	assert.True(t, errors.As(err, &nb))

	require.NoError(t, f.box.Bind("App.Services.Handlers.GoneHandler", container.ScopeTransient,
		func(context.Context, *container.Container) (any, error) { return notAHandler{}, nil }))
	_, err = f.d.Dispatch(context.Background(), &CreatePostService{})
	assert.ErrorIs(t, err, apis.ErrContractNotSatisfied)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Dispatches.WithLabelValues(dispatcher.OutcomeUnresolvable, dispatcher.TargetNone)))
}

func TestDispatch_NoInstantiator(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Map(apis.Mapping{createPostID: createPostHID}))
	d, err := dispatcher.New(reg, nil, nil, config.NewConfig())
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), &CreatePostService{})
	assert.ErrorIs(t, err, dispatcher.ErrNoInstantiator)

	out, err := d.Dispatch(context.Background(), PingService{})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}

func marker(m string) apis.Middleware {
	return func(ctx context.Context, svc any, next apis.Next) (any, error) {
		s := svc.(*CreatePostService)
		s.Log = append(s.Log, m)
		return next(ctx, s)
	}
}

func TestDispatch_Pipeline(t *testing.T) {
	f := newFixture(t, config.NewConfig(), dispatcher.WithPipeline(marker("first"), marker("second")))

	svc := &CreatePostService{Title: "x"}
	out, err := f.d.Dispatch(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, "created x", out)
	assert.Equal(t, []string{"first", "second", "handler"}, svc.Log)

	// Per-call override leaves the configured pipeline alone.
	svc = &CreatePostService{}
	_, err = f.d.DispatchThrough(context.Background(), svc, marker("only"))
	require.NoError(t, err)
	assert.Equal(t, []string{"only", "handler"}, svc.Log)

	f.d.SetPipeline(marker("replaced"))
	svc = &CreatePostService{}
	_, err = f.d.Dispatch(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"replaced", "handler"}, svc.Log)
}

func TestDispatch_PipelineTransformsService(t *testing.T) {
	f := newFixture(t, config.NewConfig())
	swap := func(ctx context.Context, _ any, next apis.Next) (any, error) {
		return next(ctx, &CreatePostService{Title: "swapped"})
	}

	out, err := f.d.DispatchThrough(context.Background(), &CreatePostService{Title: "orig"}, swap)
	require.NoError(t, err)
	assert.Equal(t, "created swapped", out)
}

func TestDispatch_PipelineViolation(t *testing.T) {
	f := newFixture(t, config.NewConfig())
	drop := func(context.Context, any, apis.Next) (any, error) { return "partial", nil }

	svc := &CreatePostService{}
	out, err := f.d.DispatchThrough(context.Background(), svc, drop)
	var v *apis.PipelineContractViolation
	require.True(t, errors.As(err, &v))
	assert.Nil(t, out)
	assert.Empty(t, svc.Log, "handler never ran")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dispatches.WithLabelValues(dispatcher.OutcomeViolation, dispatcher.TargetHandler)))
}

func TestHasAndResolveHandler(t *testing.T) {
	f := newFixture(t, config.NewConfig())
	ctx := context.Background()

	assert.True(t, f.d.HasHandler(&CreatePostService{}))
	assert.False(t, f.d.HasHandler(OrphanService{}))

	h, ok, err := f.d.ResolveHandler(ctx, &CreatePostService{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.IsType(t, &CreatePostHandler{}, h)

	h2, _, _ := f.d.ResolveHandler(ctx, &CreatePostService{})
	assert.NotSame(t, h, h2, "no handler caching in the dispatcher")

	_, ok, err = f.d.ResolveHandler(ctx, PingService{})
	require.NoError(t, err)
	assert.False(t, ok)
}

type handles interface {
	Handle(ctx context.Context, svc any) (any, error)
}

type HandleHandler struct{}

func (HandleHandler) Handle(context.Context, any) (any, error) { return "handled", nil }

func TestDispatch_CustomMethod(t *testing.T) {
	handle := &contract.Func{
		Name: "Handle",
		BindHandler: func(target any) (apis.Invocation, bool) {
			h, ok := target.(handles)
			if !ok {
				return nil, false
			}
			return h.Handle, true
		},
	}
	contracts, err := contract.NewRegistry(handle)
	require.NoError(t, err)

	cfg := config.NewConfig(config.WithDispatchMethod("Handle"))
	f := newFixture(t, cfg, dispatcher.WithContracts(contracts))
	require.NoError(t, f.box.Bind(createPostHID, container.ScopeTransient,
		func(context.Context, *container.Container) (any, error) { return HandleHandler{}, nil }))

	out, err := f.d.Dispatch(context.Background(), &CreatePostService{})
	require.NoError(t, err)
	assert.Equal(t, "handled", out)

	// Run no longer makes a service self-handling.
	_, err = f.d.Dispatch(context.Background(), PingService{})
	var nf *apis.HandlerNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestNew_Errors(t *testing.T) {
	_, err := dispatcher.New(nil, nil, nil, config.NewConfig())
	assert.ErrorIs(t, err, dispatcher.ErrNilRegistry)

	_, err = dispatcher.New(registry.New(), nil, nil, config.NewConfig(config.WithDispatchMethod("Execute")))
	var cerr *apis.ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}

func TestNewMetrics_Reuse(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := dispatcher.NewMetrics(reg)
	require.NoError(t, err)
	b, err := dispatcher.NewMetrics(reg)
	require.NoError(t, err)

	a.SetDiscovered(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(b.Discovered))

	var none *dispatcher.Metrics
	none.SetDiscovered(1)
}

func TestDispatch_Concurrent(t *testing.T) {
	f := newFixture(t, config.NewConfig(), dispatcher.WithPipeline(marker("m")))

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 4
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				svc := &CreatePostService{Title: "t"}
				if out, err := f.d.Dispatch(context.Background(), svc); err != nil || out != "created t" {
					t.Errorf("Dispatch = (%v, %v)", out, err)
					return
				}
				if _, err := f.d.Dispatch(context.Background(), PingService{}); err != nil {
					t.Errorf("self Dispatch: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
