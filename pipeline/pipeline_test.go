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

package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/svx/apis"
	"dirpx.dev/svx/pipeline"
)

type logged struct{ log []string }

func marker(m string) apis.Middleware {
	return func(ctx context.Context, svc any, next apis.Next) (any, error) {
		s := svc.(*logged)
		s.log = append(s.log, m)
		return next(ctx, s)
	}
}

func TestThen_OrderAndExactlyOnce(t *testing.T) {
	svc := &logged{}
	handlerCalls := 0
	final := func(_ context.Context, s any) (any, error) {
		handlerCalls++
		l := s.(*logged)
		l.log = append(l.log, "handler")
		return len(l.log), nil
	}

	out, err := pipeline.New(marker("first"), nil, marker("second")).Then(context.Background(), svc, final)
	require.NoError(t, err)
	assert.Equal(t, 3, out)
	assert.Equal(t, 1, handlerCalls)
	assert.Equal(t, []string{"first", "second", "handler"}, svc.log)
}

func TestThen_Empty(t *testing.T) {
	var p *pipeline.Pipeline
	out, err := p.Then(context.Background(), "svc", func(_ context.Context, s any) (any, error) { return s, nil })
	require.NoError(t, err)
	assert.Equal(t, "svc", out)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 2, pipeline.New(marker("a"), marker("b")).Len())
}

func TestThen_Transform(t *testing.T) {
	upper := func(ctx context.Context, svc any, next apis.Next) (any, error) {
		return next(ctx, svc.(string)+"!")
	}
	out, err := pipeline.New(upper, upper).Then(context.Background(), "hi",
		func(_ context.Context, s any) (any, error) { return s, nil })
	require.NoError(t, err)
	assert.Equal(t, "hi!!", out)
}

func TestThen_DroppedCall(t *testing.T) {
	drop := func(context.Context, any, apis.Next) (any, error) { return "swallowed", nil }
	called := false
	out, err := pipeline.New(marker("first"), drop).Then(context.Background(), &logged{},
		func(context.Context, any) (any, error) { called = true; return nil, nil })

	var v *apis.PipelineContractViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, 1, v.Step)
	assert.Equal(t, 0, v.Calls)
	assert.Nil(t, out, "no partial result")
	assert.False(t, called)
}

func TestThen_DoubleCall(t *testing.T) {
	twice := func(ctx context.Context, svc any, next apis.Next) (any, error) {
		_, _ = next(ctx, svc)
		return next(ctx, svc)
	}
	calls := 0
	_, err := pipeline.New(twice).Then(context.Background(), nil,
		func(context.Context, any) (any, error) { calls++; return nil, nil })

	var v *apis.PipelineContractViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, 0, v.Step)
	assert.Equal(t, 2, v.Calls)
	assert.Equal(t, 1, calls, "the final step runs at most once")
}

func TestThen_StepError(t *testing.T) {
	boom := errors.New("boom")
	fail := func(context.Context, any, apis.Next) (any, error) { return nil, boom }
	_, err := pipeline.New(fail).Then(context.Background(), nil,
		func(context.Context, any) (any, error) { t.Fatal("final must not run"); return nil, nil })
	assert.ErrorIs(t, err, boom)
}
