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

// Package pipeline threads a service through ordered middleware before the
// final dispatch call.
package pipeline

import (
	"context"

	"dirpx.dev/svx/apis"
)

// Pipeline is an immutable, ordered list of middleware steps.
type Pipeline struct {
	steps []apis.Middleware
}

// New returns a Pipeline running steps in declared order. Nil steps are
// ignored.
func New(steps ...apis.Middleware) *Pipeline {
	out := make([]apis.Middleware, 0, len(steps))
	for _, s := range steps {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Pipeline{steps: out}
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.steps)
}

// Then runs every step in order and finally calls final exactly once with
// the service as the last step passed it. Its result is returned unchanged.
//
// A step returning an error short-circuits the call with that error. A step
// that returns without error but did not call next, or called it more than
// once, yields *apis.PipelineContractViolation and no result.
func (p *Pipeline) Then(ctx context.Context, service any, final apis.Invocation) (any, error) {
	if p == nil || len(p.steps) == 0 {
		return final(ctx, service)
	}
	return p.run(ctx, 0, service, final)
}

func (p *Pipeline) run(ctx context.Context, i int, service any, final apis.Invocation) (any, error) {
	if i == len(p.steps) {
		return final(ctx, service)
	}

	calls := 0
	next := func(ctx context.Context, svc any) (any, error) {
		calls++
		if calls > 1 {
			return nil, &apis.PipelineContractViolation{Step: i, Calls: calls}
		}
		return p.run(ctx, i+1, svc, final)
	}

	out, err := p.steps[i](ctx, service, next)
	if err != nil {
		return nil, err
	}
	if calls != 1 {
		return nil, &apis.PipelineContractViolation{Step: i, Calls: calls}
	}
	return out, nil
}
