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

package container

import (
	"fmt"

	"dirpx.dev/svx/apis"
)

// BindingNotFoundError represents a missing binding error.
type BindingNotFoundError struct {
	Identity apis.Identity
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("svx(container): no binding found for %s", e.Identity)
}

// CircularDependencyError represents a circular dependency detection error.
type CircularDependencyError struct {
	Path []apis.Identity
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("svx(container): circular dependency detected: %v", e.Path)
}

// InitializationError represents a factory failure.
type InitializationError struct {
	Identity apis.Identity
	Err      error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("svx(container): initialization failed for %s: %v", e.Identity, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// NilInstanceError represents a factory returning a nil instance.
type NilInstanceError struct {
	Identity apis.Identity
}

func (e *NilInstanceError) Error() string {
	return fmt.Sprintf("svx(container): nil instance produced for %s", e.Identity)
}
