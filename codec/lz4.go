// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package codec

import (
	"bytes"

	"github.com/pierrec/lz4"
)

// LZ4Codec inflates lz4_data payloads.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

func (LZ4Codec) ID() ID {
	return LZ4
}

func (LZ4Codec) Decompress(in []byte, rawSize int) ([]byte, error) {
	return readSized(lz4.NewReader(bytes.NewReader(in)), rawSize)
}
