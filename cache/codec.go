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

package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"dirpx.dev/svx/apis"
)

// Encode serializes m into the opaque cache entry format.
func Encode(m apis.Mapping) ([]byte, error) {
	flat := make(map[string]string, len(m))
	for k, v := range m {
		flat[string(k)] = string(v)
	}
	b, err := msgpack.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("svx(cache): encode mapping: %w", err)
	}
	return b, nil
}

// Decode parses a cache entry produced by Encode.
func Decode(b []byte) (apis.Mapping, error) {
	var flat map[string]string
	if err := msgpack.Unmarshal(b, &flat); err != nil {
		return nil, fmt.Errorf("svx(cache): decode mapping: %w", err)
	}
	m := make(apis.Mapping, len(flat))
	for k, v := range flat {
		m[apis.Identity(k)] = apis.Identity(v)
	}
	return m, nil
}
