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
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmpbf/internal/pbftest"
)

var payload = bytes.Repeat([]byte("the quick brown fox "), 100)

func TestParseBlobRaw(t *testing.T) {
	b, err := ParseBlob(pbftest.RawBlob(payload))
	require.NoError(t, err)

	assert.Equal(t, Raw, b.Codec)
	assert.Equal(t, payload, b.Data)
	assert.Equal(t, len(payload), b.RawSize)
}

func TestParseBlobZlib(t *testing.T) {
	b, err := ParseBlob(pbftest.ZlibBlob(payload))
	require.NoError(t, err)

	assert.Equal(t, Zlib, b.Codec)
	assert.Equal(t, len(payload), b.RawSize)
}

func TestParseBlobNoData(t *testing.T) {
	_, err := ParseBlob(pbftest.Varint(2, 100))
	assert.ErrorIs(t, err, ErrBlobData)
}

func TestParseBlobTwoPayloads(t *testing.T) {
	blob := pbftest.Concat(pbftest.RawBlob(payload), pbftest.Bytes(3, []byte("zz")))

	_, err := ParseBlob(blob)
	assert.ErrorIs(t, err, ErrBlobData)
}

func TestParseBlobSkipsUnknownFields(t *testing.T) {
	blob := pbftest.Concat(pbftest.Bytes(15, []byte("future")), pbftest.RawBlob(payload))

	b, err := ParseBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, payload, b.Data)
}

func TestRawAndZlibDecodeIdentically(t *testing.T) {
	reg := NewRegistry()

	raw, err := ParseBlob(pbftest.RawBlob(payload))
	require.NoError(t, err)
	zl, err := ParseBlob(pbftest.ZlibBlob(payload))
	require.NoError(t, err)

	rawOut, err := reg.Inflate(raw)
	require.NoError(t, err)
	zlOut, err := reg.Inflate(zl)
	require.NoError(t, err)

	assert.Equal(t, rawOut, zlOut)
}

func TestInflateSizeMismatch(t *testing.T) {
	reg := NewRegistry()

	// Declares 1000 bytes but the stream inflates to 999.
	blob, err := ParseBlob(pbftest.ZlibBlobDeclaring(bytes.Repeat([]byte{'a'}, 999), 1000))
	require.NoError(t, err)

	_, err = reg.Inflate(blob)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	// And the other way around.
	blob, err = ParseBlob(pbftest.ZlibBlobDeclaring(bytes.Repeat([]byte{'a'}, 1000), 999))
	require.NoError(t, err)

	_, err = reg.Inflate(blob)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestInflateUnsupportedCodec(t *testing.T) {
	reg := NewRegistry() // no extras: zstd is not registered

	_, err := reg.Inflate(Blob{Codec: Zstd, Data: []byte("x"), RawSize: 1})
	assert.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestInflateCorruptZlib(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Inflate(Blob{Codec: Zlib, Data: []byte("not zlib"), RawSize: 8})
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Zlib, cerr.Codec)
}

func TestLZ4RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := LZ4Codec{}.Decompress(buf.Bytes(), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestZstdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := ZstdCodec{}.Decompress(buf.Bytes(), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestLzmaRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := LzmaCodec{}.Decompress(buf.Bytes(), len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestDefaultRegistryCoversEveryID(t *testing.T) {
	reg := Default()

	for _, id := range []ID{Raw, Zlib, Lzma, LZ4, Zstd, Brotli} {
		c, ok := reg.Lookup(id)
		require.True(t, ok, "codec %s", id)
		assert.Equal(t, id, c.ID())
	}
}

func TestRawIgnoresDeclaredSize(t *testing.T) {
	out, err := RawCodec{}.Decompress(payload, 1)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
