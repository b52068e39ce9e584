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

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIdentity is returned when an empty identity is provided.
	ErrEmptyIdentity = errors.New("svx: empty identity")
	// ErrMalformedIdentity is returned for an identity with an empty segment.
	ErrMalformedIdentity = errors.New("svx: malformed identity")
	// ErrContractNotSatisfied is wrapped when a resolved handler does not
	// expose the configured dispatch method.
	ErrContractNotSatisfied = errors.New("svx: dispatch contract not satisfied")
)

// ConfigurationError reports a missing or contradictory naming option.
// It surfaces at startup and is never retried.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("svx: invalid configuration %s: %s", e.Option, e.Reason)
}

// HandlerNotFoundError is returned by dispatch when a service has neither a
// mapped handler nor a dispatch method of its own.
type HandlerNotFoundError struct {
	Service Identity
}

func (e *HandlerNotFoundError) Error() string {
	if e.Service == "" {
		return "svx: unable to locate handler for unidentified service"
	}
	return fmt.Sprintf("svx: unable to locate handler for service %s", e.Service)
}

// UnresolvableHandlerTypeError is returned when a mapped handler identity
// cannot be instantiated, or its instance does not satisfy the contract.
type UnresolvableHandlerTypeError struct {
	Service Identity
	Handler Identity
	Err     error
}

func (e *UnresolvableHandlerTypeError) Error() string {
	return fmt.Sprintf("svx: unable to resolve handler %s for service %s: %v", e.Handler, e.Service, e.Err)
}

func (e *UnresolvableHandlerTypeError) Unwrap() error {
	return e.Err
}

// PipelineContractViolation is returned when a middleware step returns
// without passing control onward, or passes it more than once.
type PipelineContractViolation struct {
	Step  int
	Calls int
}

func (e *PipelineContractViolation) Error() string {
	return fmt.Sprintf("svx: pipeline step %d called next %d times, want exactly once", e.Step, e.Calls)
}
