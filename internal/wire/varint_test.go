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

package wire

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16383, 16384, math.MaxUint32, math.MaxUint64}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		values = append(values, rng.Uint64()>>uint(rng.Intn(64)))
	}

	for _, v := range values {
		buf := AppendUvarint(nil, v)

		got, n, err := Uvarint(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestSvarintRoundTrip(t *testing.T) {
	values := []int64{0, -1, 1, -64, 63, math.MinInt64, math.MaxInt64}

	rng := rand.New(rand.NewSource(43))
	for i := 0; i < 1000; i++ {
		values = append(values, int64(rng.Uint64()>>uint(rng.Intn(64)))-int64(rng.Uint64()>>uint(rng.Intn(64))))
	}

	for _, v := range values {
		buf := AppendSvarint(nil, v)

		got, n, err := Svarint(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestZigzagMapping(t *testing.T) {
	assert.Equal(t, int64(0), Unzigzag(0))
	assert.Equal(t, int64(-1), Unzigzag(1))
	assert.Equal(t, int64(1), Unzigzag(2))
	assert.Equal(t, int64(-2), Unzigzag(3))
	assert.Equal(t, int64(2), Unzigzag(4))

	assert.Equal(t, uint64(0), Zigzag(0))
	assert.Equal(t, uint64(1), Zigzag(-1))
	assert.Equal(t, uint64(2), Zigzag(1))
}

func TestUvarintTruncated(t *testing.T) {
	_, _, err := Uvarint(nil)
	assert.ErrorIs(t, err, ErrMalformedVarint)

	_, _, err = Uvarint([]byte{0x80})
	assert.ErrorIs(t, err, ErrMalformedVarint)

	_, _, err = Uvarint([]byte{0x80, 0x80, 0x80})
	assert.ErrorIs(t, err, ErrMalformedVarint)
}

func TestUvarintOverlong(t *testing.T) {
	// Ten continuation bytes, then a terminator: the tenth byte must terminate.
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}

	_, _, err := Uvarint(buf)
	assert.ErrorIs(t, err, ErrMalformedVarint)
}

func TestUvarintMax(t *testing.T) {
	buf := AppendUvarint(nil, math.MaxUint64)
	require.Len(t, buf, MaxVarintLen)

	got, n, err := Uvarint(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)
	assert.Equal(t, MaxVarintLen, n)
}

func TestUvarintConsumesPrefixOnly(t *testing.T) {
	buf := append(AppendUvarint(nil, 300), 0xff, 0xff)

	got, n, err := Uvarint(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), got)
	assert.Equal(t, 2, n)
}
