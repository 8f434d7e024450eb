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

// Package frame lifts a byte stream into a sequence of PBF blob frames.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"m4o.io/osmpbf/internal/core"
	"m4o.io/osmpbf/internal/wire"
)

// MaxHeaderLen caps the encoded BlobHeader length.  The reference limit seen
// in the field is 32 KiB; twice that is already suspicious.
const MaxHeaderLen = 64 * 1024

// BlobHeader type values for the two block kinds.
const (
	TypeOSMHeader = "OSMHeader"
	TypeOSMData   = "OSMData"
)

// Errors reported while framing the stream.
var (
	ErrTruncatedStream     = errors.New("truncated stream")
	ErrFrameHeaderTooLarge = errors.New("frame header too large")
	ErrBlobTooLarge        = errors.New("blob exceeds size ceiling")
)

// Kind discriminates header frames from data frames.
type Kind int

// Frame kinds.  KindUnknown is carried until decode time; an unrecognized
// BlobHeader type is not an error at the framing layer.
const (
	KindUnknown Kind = iota
	KindHeader
	KindData
)

// Frame is one blob lifted off the stream: its monotonically assigned index,
// its kind, and the still-encoded Blob message payload.
type Frame struct {
	Index int64
	Kind  Kind
	Type  string
	Blob  []byte
}

// Reader produces frames from a byte stream in file order.
type Reader struct {
	r       io.Reader
	index   int64
	maxBlob int
	lenBuf  [4]byte
}

// NewReader returns a frame reader over r.  Blob payloads larger than maxBlob
// bytes are rejected with ErrBlobTooLarge.
func NewReader(r io.Reader, maxBlob int) *Reader {
	return &Reader{r: r, maxBlob: maxBlob}
}

// Next reads one frame.  It returns io.EOF only when the stream ends exactly
// at a frame boundary; a partial frame is ErrTruncatedStream.
func (r *Reader) Next() (Frame, error) {
	if _, err := io.ReadFull(r.r, r.lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: partial frame length", ErrTruncatedStream)
		}

		return Frame{}, fmt.Errorf("error reading frame length: %w", err)
	}

	headerLen := binary.BigEndian.Uint32(r.lenBuf[:])
	if headerLen > MaxHeaderLen {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameHeaderTooLarge, headerLen)
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	if n, err := io.CopyN(buf, r.r, int64(headerLen)); err != nil {
		return Frame{}, fmt.Errorf("%w: blob header after %d bytes", ErrTruncatedStream, n)
	}

	blobType, datasize, err := parseBlobHeader(buf.Bytes())
	if err != nil {
		return Frame{}, fmt.Errorf("error decoding blob header: %w", err)
	}

	if datasize > r.maxBlob {
		return Frame{}, fmt.Errorf("%w: datasize %d", ErrBlobTooLarge, datasize)
	}

	blob := make([]byte, datasize)
	if _, err := io.ReadFull(r.r, blob); err != nil {
		return Frame{}, fmt.Errorf("%w: blob payload", ErrTruncatedStream)
	}

	f := Frame{
		Index: r.index,
		Type:  blobType,
		Blob:  blob,
	}
	r.index++

	switch blobType {
	case TypeOSMHeader:
		f.Kind = KindHeader
	case TypeOSMData:
		f.Kind = KindData
	}

	return f, nil
}

// parseBlobHeader extracts the type string and datasize from an encoded
// BlobHeader message.  The optional indexdata field is skipped.
func parseBlobHeader(buf []byte) (string, int, error) {
	var blobType string
	var datasize int

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return "", 0, err
		}

		switch {
		case num == 1 && typ == wire.TypeBytes:
			if blobType, err = s.String(); err != nil {
				return "", 0, err
			}

		case num == 3 && typ == wire.TypeVarint:
			v, err := s.Int64()
			if err != nil {
				return "", 0, err
			}
			if v < 0 {
				return "", 0, fmt.Errorf("%w: negative datasize", wire.ErrMalformedField)
			}
			datasize = int(v)

		default:
			if err := s.Skip(typ); err != nil {
				return "", 0, err
			}
		}
	}

	return blobType, datasize, nil
}
