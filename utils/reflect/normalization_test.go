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

package reflect_test

import (
	"errors"
	"reflect"
	"testing"

	uref "dirpx.dev/svx/utils/reflect"
)

type Named struct{}
type Generic[T any] struct{}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		in      reflect.Type
		max     int
		want    reflect.Type
		wantErr error
	}{
		{"named value", reflect.TypeOf(Named{}), 4, reflect.TypeOf(Named{}), nil},
		{"pointer", reflect.TypeOf(&Named{}), 4, reflect.TypeOf(Named{}), nil},
		{"pointer to pointer", reflect.TypeOf((**Named)(nil)), 4, reflect.TypeOf(Named{}), nil},
		{"too deep", reflect.TypeOf((**Named)(nil)), 1, nil, uref.ErrReflectTypeNotNamed},
		{"slice is not unwrapped", reflect.TypeOf([]Named{}), 4, nil, uref.ErrReflectTypeNotNamed},
		{"anonymous struct", reflect.TypeOf(struct{}{}), 4, nil, uref.ErrReflectTypeNotNamed},
		{"nil", nil, 4, nil, uref.ErrReflectNilType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := uref.Normalize(tc.in, tc.max)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStripTypeParams(t *testing.T) {
	name := reflect.TypeOf(Generic[int]{}).Name()
	if got := uref.StripTypeParams(name); got != "Generic" {
		t.Fatalf("StripTypeParams(%q) = %q, want Generic", name, got)
	}
	if got := uref.StripTypeParams("Plain"); got != "Plain" {
		t.Fatalf("StripTypeParams(Plain) = %q", got)
	}
}
