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

	"github.com/klauspost/compress/zstd"
)

// ZstdCodec inflates zstd_data payloads.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

func (ZstdCodec) ID() ID {
	return Zstd
}

func (ZstdCodec) Decompress(in []byte, rawSize int) ([]byte, error) {
	rdr, err := zstd.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	return readSized(rdr, rawSize)
}
