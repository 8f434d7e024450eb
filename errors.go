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

package osmpbf

import (
	"errors"
	"fmt"

	"m4o.io/osmpbf/codec"
	"m4o.io/osmpbf/internal/block"
	"m4o.io/osmpbf/internal/frame"
	"m4o.io/osmpbf/internal/pool"
	"m4o.io/osmpbf/internal/wire"
)

// Errors surfaced by the pipeline, by layer.  All of them are terminal: the
// first one encountered stops the decode.
var (
	// Stream level.
	ErrTruncatedStream     = frame.ErrTruncatedStream
	ErrFrameHeaderTooLarge = frame.ErrFrameHeaderTooLarge
	ErrBlobTooLarge        = frame.ErrBlobTooLarge
	ErrInvalidBlockType    = errors.New("invalid block type")
	ErrDuplicateHeader     = errors.New("duplicate header block")

	// Codec level.
	ErrUnsupportedCodec = codec.ErrUnsupportedCodec
	ErrSizeMismatch     = codec.ErrSizeMismatch

	// Wire format level.
	ErrMalformedVarint    = wire.ErrMalformedVarint
	ErrMalformedField     = wire.ErrMalformedField
	ErrUnexpectedWireType = wire.ErrUnexpectedWireType

	// Semantic level.
	ErrMalformedStringTable        = block.ErrMalformedStringTable
	ErrStringIndexOutOfRange       = block.ErrStringIndexOutOfRange
	ErrMalformedTagStream          = block.ErrMalformedTagStream
	ErrParallelArrayLengthMismatch = block.ErrParallelArrayLengthMismatch
	ErrMalformedMemberType         = block.ErrMalformedMemberType
	ErrUnsupportedFeature          = block.ErrUnsupportedFeature
	ErrMissingHeader               = errors.New("no leading header block")

	// Lifecycle.
	ErrPoolShutdown = pool.ErrShutdown
)

// FrameError carries the index of the frame a pipeline error belongs to.
type FrameError struct {
	Index int64
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Warning is a diagnostic that does not stop the pipeline, delivered through
// the WithDiagnostics option.
type Warning struct {
	Index   int64
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("frame %d: %s", w.Index, w.Message)
}
