// Copyright 2017-25 the original author or authors.
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

// Package osmpbf reads OpenStreetMap PBF streams and emits entities to a
// handler in file order.  Blob decompression runs on a bounded worker pool;
// everything else, the handler callbacks included, runs on the caller's
// goroutine.
package osmpbf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"m4o.io/osmpbf/codec"
	"m4o.io/osmpbf/internal/block"
	"m4o.io/osmpbf/internal/frame"
	"m4o.io/osmpbf/internal/pool"
	"m4o.io/osmpbf/model"
)

// Handler consumes decoded entities.  Callbacks arrive strictly in file
// order and never concurrently for the same Parse call.  Every reference
// handed to a callback borrows from the enclosing block and must not be
// retained past the call.
type Handler interface {
	Header(h *model.Header)
	Node(n *model.Node)
	Way(w *model.Way)
	Relation(r *model.Relation)
}

// Decoder reads and decodes OpenStreetMap PBF data from an input stream.
type Decoder struct {
	rdr  io.Reader
	opts decoderOptions
}

// NewDecoder returns a decoder, configured with opts, that reads from rdr.
func NewDecoder(rdr io.Reader, opts ...DecoderOption) *Decoder {
	o := defaultDecoderOptions()
	o.inFlight = 0
	for _, opt := range opts {
		opt(&o)
	}

	// Unless set explicitly, the in-flight bound follows the configured
	// worker ceiling.
	if o.inFlight == 0 {
		o.inFlight = 2 * o.maxWorkers
	}

	return &Decoder{rdr: rdr, opts: o}
}

// inflight pairs a frame with the handle of its decompression task.
type inflight struct {
	frame  frame.Frame
	handle *pool.Handle
}

// Parse drives the pipeline until end of stream, a terminal error, or ctx
// cancellation.  A nil return means the whole stream was decoded and every
// in-flight block delivered.
func (d *Decoder) Parse(ctx context.Context, handler Handler) error {
	workers := pool.New(d.opts.minWorkers, d.opts.maxWorkers, d.opts.idleTimeout)
	defer workers.Close()

	frames := frame.NewReader(d.rdr, d.opts.maxBlobSize)
	blocks := block.NewDecoder()

	seq := sequencer{
		opts:    d.opts,
		ctx:     ctx,
		handler: handler,
		blocks:  blocks,
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return seq.fail(&FrameError{Index: seq.read, Err: err})
		}
		seq.read++

		handle, err := d.submit(workers, f)
		if err != nil {
			return seq.fail(&FrameError{Index: f.Index, Err: err})
		}

		seq.pending = append(seq.pending, inflight{frame: f, handle: handle})

		// Backpressure: hold frame reading while the in-flight bound
		// is met.
		for len(seq.pending) >= d.opts.inFlight {
			if err := seq.drainOne(); err != nil {
				return err
			}
		}
	}

	for len(seq.pending) > 0 {
		if err := seq.drainOne(); err != nil {
			return err
		}
	}

	return nil
}

// submit hands a frame's blob to the worker pool.  Header blobs jump the
// queue so the features check never trails the data blocks behind it.
func (d *Decoder) submit(workers *pool.Pool, f frame.Frame) (*pool.Handle, error) {
	pri := pool.Normal
	if f.Kind == frame.KindHeader {
		pri = pool.High
	}

	payload := f.Blob
	registry := d.opts.registry
	ceiling := d.opts.maxBlobSize

	return workers.Submit(pri, func() ([]byte, error) {
		b, err := codec.ParseBlob(payload)
		if err != nil {
			return nil, err
		}

		if b.RawSize > ceiling {
			return nil, fmt.Errorf("%w: raw size %d", ErrBlobTooLarge, b.RawSize)
		}

		return registry.Inflate(b)
	})
}

// sequencer restores file order: frames are submitted in index order and
// awaited in index order, so the head of pending is always the next block
// the consumer must see.
type sequencer struct {
	opts    decoderOptions
	ctx     context.Context
	handler Handler
	blocks  *block.Decoder

	pending []inflight
	read    int64

	headerSeen    bool
	warnedMissing bool
}

// drainOne awaits the oldest in-flight decompression and decodes its block.
func (s *sequencer) drainOne() error {
	head := s.pending[0]
	s.pending = s.pending[1:]

	payload, err := head.handle.Wait(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}

		return s.fail(&FrameError{Index: head.frame.Index, Err: err})
	}

	return s.process(head.frame, payload)
}

// process decodes one in-order block and emits its entities.
func (s *sequencer) process(f frame.Frame, payload []byte) error {
	switch f.Kind {
	case frame.KindHeader:
		if s.headerSeen {
			return s.fail(&FrameError{Index: f.Index, Err: ErrDuplicateHeader})
		}
		s.headerSeen = true

		h, err := block.DecodeHeader(payload)
		if err != nil {
			return s.fail(&FrameError{Index: f.Index, Err: err})
		}

		s.handler.Header(h)

	case frame.KindData:
		if !s.headerSeen && !s.warnedMissing {
			s.warnedMissing = true
			s.warn(Warning{Index: f.Index, Message: "OSMData block before any OSMHeader"})
		}

		if err := s.blocks.Decode(payload, s.handler); err != nil {
			return s.fail(&FrameError{Index: f.Index, Err: err})
		}

	default:
		return s.fail(&FrameError{
			Index: f.Index,
			Err:   fmt.Errorf("%w: %q", ErrInvalidBlockType, f.Type),
		})
	}

	return nil
}

// fail funnels every terminal error through one place.
func (s *sequencer) fail(err error) error {
	slog.Error("unable to decode stream", "error", err)

	return err
}

func (s *sequencer) warn(w Warning) {
	if s.opts.diagnostics != nil {
		s.opts.diagnostics(w)
	}
}

// LoadHeader synchronously reads the leading header block of a stream.  It
// consumes only the first frame of rdr.
func LoadHeader(rdr io.Reader, opts ...DecoderOption) (*model.Header, error) {
	o := defaultDecoderOptions()
	for _, opt := range opts {
		opt(&o)
	}

	frames := frame.NewReader(rdr, o.maxBlobSize)

	f, err := frames.Next()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	} else if err != nil {
		return nil, err
	}

	if f.Kind != frame.KindHeader {
		return nil, fmt.Errorf("%w: first block is %q", ErrMissingHeader, f.Type)
	}

	b, err := codec.ParseBlob(f.Blob)
	if err != nil {
		return nil, err
	}

	payload, err := o.registry.Inflate(b)
	if err != nil {
		return nil, err
	}

	return block.DecodeHeader(payload)
}
