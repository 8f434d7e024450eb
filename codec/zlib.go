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
	"compress/zlib"
)

// ZlibCodec inflates RFC 1950 DEFLATE payloads, the dominant encoding in the
// wild.
type ZlibCodec struct{}

var _ Codec = ZlibCodec{}

func (ZlibCodec) ID() ID {
	return Zlib
}

func (ZlibCodec) Decompress(in []byte, rawSize int) ([]byte, error) {
	rdr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	return readSized(rdr, rawSize)
}
