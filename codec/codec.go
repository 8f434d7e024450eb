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

// Package codec uncompresses PBF blob payloads.  The raw and zlib codecs are
// always present; lzma, lz4, zstd and brotli are registrable extras.
package codec

import (
	"errors"
	"fmt"
	"io"

	"m4o.io/osmpbf/internal/wire"
)

// ID identifies a blob compression codec.
type ID int

// Codec identifiers, in Blob field order.
const (
	Raw ID = iota
	Zlib
	Lzma
	LZ4
	Zstd
	Brotli
)

func (id ID) String() string {
	switch id {
	case Raw:
		return "raw"
	case Zlib:
		return "zlib"
	case Lzma:
		return "lzma"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	default:
		return fmt.Sprintf("codec(%d)", int(id))
	}
}

// Errors reported while selecting or running a codec.
var (
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrSizeMismatch     = errors.New("uncompressed size mismatch")
	ErrBlobData         = errors.New("blob must carry exactly one data payload")
)

// Error wraps a codec failure with the codec that produced it.
type Error struct {
	Codec ID
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec %s: %v", e.Codec, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Codec uncompresses one blob payload.  RawSize is the declared uncompressed
// length, or a negative value when the blob did not declare one.
type Codec interface {
	ID() ID
	Decompress(in []byte, rawSize int) ([]byte, error)
}

// Blob is a decoded Blob message: the selected codec, its payload, and the
// declared uncompressed size (negative when absent).
type Blob struct {
	Codec   ID
	Data    []byte
	RawSize int
}

// ParseBlob decodes a Blob message.  Exactly one data field must be present.
func ParseBlob(buf []byte) (Blob, error) {
	b := Blob{RawSize: -1}
	seen := false

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return Blob{}, err
		}

		var id ID
		switch {
		case num == 2 && typ == wire.TypeVarint:
			v, err := s.Int64()
			if err != nil {
				return Blob{}, err
			}
			b.RawSize = int(v)

			continue

		case num == 1 && typ == wire.TypeBytes:
			id = Raw
		case num == 3 && typ == wire.TypeBytes:
			id = Zlib
		case num == 4 && typ == wire.TypeBytes:
			id = Lzma
		case num == 6 && typ == wire.TypeBytes:
			id = LZ4
		case num == 7 && typ == wire.TypeBytes:
			id = Zstd

		default:
			if err := s.Skip(typ); err != nil {
				return Blob{}, err
			}

			continue
		}

		if seen {
			return Blob{}, ErrBlobData
		}
		seen = true

		if b.Data, err = s.Bytes(); err != nil {
			return Blob{}, err
		}
		b.Codec = id
	}

	if !seen {
		return Blob{}, ErrBlobData
	}

	return b, nil
}

// Registry dispatches blob payloads to codecs.
type Registry struct {
	codecs map[ID]Codec
}

// NewRegistry returns a registry holding the mandatory raw and zlib codecs
// plus any extras.
func NewRegistry(extras ...Codec) *Registry {
	r := &Registry{codecs: make(map[ID]Codec)}
	r.Register(RawCodec{})
	r.Register(ZlibCodec{})

	for _, c := range extras {
		r.Register(c)
	}

	return r
}

// Default returns a registry with every codec this module ships: raw, zlib,
// the legacy lzma, and the optional lz4, zstd and brotli.
func Default() *Registry {
	return NewRegistry(LzmaCodec{}, LZ4Codec{}, ZstdCodec{}, BrotliCodec{})
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) {
	r.codecs[c.ID()] = c
}

// Lookup returns the codec registered under id.
func (r *Registry) Lookup(id ID) (Codec, bool) {
	c, ok := r.codecs[id]

	return c, ok
}

// Inflate uncompresses a parsed blob.  For any codec but raw, a declared
// raw size that disagrees with the uncompressed length is ErrSizeMismatch.
func (r *Registry) Inflate(b Blob) ([]byte, error) {
	c, ok := r.codecs[b.Codec]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, b.Codec)
	}

	out, err := c.Decompress(b.Data, b.RawSize)
	if err != nil {
		return nil, &Error{Codec: b.Codec, Err: err}
	}

	return out, nil
}

// readSized drains rdr expecting exactly rawSize bytes; a negative rawSize
// reads to EOF.
func readSized(rdr io.Reader, rawSize int) ([]byte, error) {
	if rawSize < 0 {
		return io.ReadAll(rdr)
	}

	out := make([]byte, rawSize)
	if _, err := io.ReadFull(rdr, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrSizeMismatch
		}

		return nil, err
	}

	// The stream must end where the declared size says it does.
	var extra [1]byte
	if n, _ := rdr.Read(extra[:]); n != 0 {
		return nil, ErrSizeMismatch
	}

	return out, nil
}
