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

package reflect

import (
	"errors"
	"reflect"
	"strings"
)

var (
	// ErrReflectNilType is returned when a nil reflect.Type is provided.
	ErrReflectNilType = errors.New("reflect: nil reflect.Type provided")
	// ErrReflectTypeNotNamed indicates that the provided type (after unwrapping
	// pointers) is not a named type (e.g., anonymous struct, func, interface{}).
	ErrReflectTypeNotNamed = errors.New("reflect: type is not named")
)

// Normalize unwraps up to maxUnwrap pointer levels and returns the named type
// underneath, or an error if there is none. Services are passed by value or
// by pointer, so containers (slices, maps, chans) are never unwrapped: a
// []T is not a T.
func Normalize(t reflect.Type, maxUnwrap int) (reflect.Type, error) {
	if t == nil {
		return nil, ErrReflectNilType
	}
	for i := 0; i < maxUnwrap && t.Kind() == reflect.Pointer && t.Name() == ""; i++ {
		t = t.Elem()
	}
	if t.Name() == "" {
		return nil, ErrReflectTypeNotNamed
	}
	return t, nil
}

// StripTypeParams removes a generic instantiation suffix: "T[int,string]" -> "T".
func StripTypeParams(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}
