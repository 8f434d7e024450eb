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

// Package block parses decompressed primitive blocks and emits entities on a
// sink, in declared order, without constructing intermediate messages.
package block

import (
	"errors"
	"fmt"
	"io"

	"m4o.io/osmpbf/internal/wire"
	"m4o.io/osmpbf/model"
)

// Defaults for block metadata fields that are absent on the wire.
const (
	DefaultGranularity     = 100
	DefaultDateGranularity = 1000
)

// Errors reported while decoding a block.
var (
	ErrMalformedStringTable        = errors.New("malformed string table")
	ErrStringIndexOutOfRange       = errors.New("string index out of range")
	ErrMalformedTagStream          = errors.New("malformed tag stream")
	ErrParallelArrayLengthMismatch = errors.New("parallel array length mismatch")
	ErrMalformedMemberType         = errors.New("malformed member type")
)

// Sink consumes decoded entities.  Every reference handed to a callback
// borrows from the block buffer and is valid only for the duration of the
// call.
type Sink interface {
	Header(h *model.Header)
	Node(n *model.Node)
	Way(w *model.Way)
	Relation(r *model.Relation)
}

// Decoder turns decompressed PrimitiveBlock buffers into entity callbacks.
// The scratch entities it carries are reused between callbacks, which is what
// makes the borrow rule above load bearing.  A Decoder is not safe for
// concurrent use.
type Decoder struct {
	strings stringTable
	groups  [][]byte

	granularity     int64
	dateGranularity int64
	latOffset       int64
	lonOffset       int64

	node    model.Node
	way     model.Way
	rel     model.Relation
	refs    []model.ID
	members []model.Member
}

// NewDecoder returns a block decoder with empty scratch state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses one PrimitiveBlock and emits its entities on sink in
// declared order: groups in block order, entities in group order.
func (d *Decoder) Decode(buf []byte, sink Sink) error {
	if err := d.scanBlock(buf); err != nil {
		return err
	}

	for _, group := range d.groups {
		if err := d.decodeGroup(group, sink); err != nil {
			return err
		}
	}

	return nil
}

// scanBlock is the cheap first pass: it captures the string table and the
// granularity and offset fields, which must be in hand before any entity is
// decoded, and collects the group bodies for the second pass.
func (d *Decoder) scanBlock(buf []byte) error {
	var table []byte

	d.groups = d.groups[:0]
	d.granularity = DefaultGranularity
	d.dateGranularity = DefaultDateGranularity
	d.latOffset = 0
	d.lonOffset = 0

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		switch {
		case num == 1 && typ == wire.TypeBytes:
			if table, err = s.Bytes(); err != nil {
				return err
			}

		case num == 2 && typ == wire.TypeBytes:
			group, err := s.Bytes()
			if err != nil {
				return err
			}
			d.groups = append(d.groups, group)

		case num == 17 && typ == wire.TypeVarint:
			if d.granularity, err = s.Int64(); err != nil {
				return err
			}
			if d.granularity <= 0 {
				return fmt.Errorf("%w: granularity %d", wire.ErrMalformedField, d.granularity)
			}

		case num == 18 && typ == wire.TypeVarint:
			if d.dateGranularity, err = s.Int64(); err != nil {
				return err
			}
			if d.dateGranularity <= 0 {
				return fmt.Errorf("%w: date granularity %d", wire.ErrMalformedField, d.dateGranularity)
			}

		case num == 19 && typ == wire.TypeVarint:
			if d.latOffset, err = s.Int64(); err != nil {
				return err
			}

		case num == 20 && typ == wire.TypeVarint:
			if d.lonOffset, err = s.Int64(); err != nil {
				return err
			}

		default:
			if err := s.Skip(typ); err != nil {
				return err
			}
		}
	}

	return d.strings.load(table)
}

// decodeGroup dispatches one PrimitiveGroup.  A group holds entities of a
// single kind; iterating fields in wire order preserves the declared entity
// order.  Changesets are skipped.
func (d *Decoder) decodeGroup(buf []byte, sink Sink) error {
	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		if typ != wire.TypeBytes {
			if err := s.Skip(typ); err != nil {
				return err
			}

			continue
		}

		body, err := s.Bytes()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			err = d.decodeNode(body, sink)
		case 2:
			err = d.decodeDenseNodes(body, sink)
		case 3:
			err = d.decodeWay(body, sink)
		case 4:
			err = d.decodeRelation(body, sink)
		default:
			// changesets and unknown groups
		}

		if err != nil {
			return err
		}
	}
}

// degrees applies the block granularity and offset to a stored coordinate.
func (d *Decoder) degrees(offset, coordinate int64) model.Degrees {
	return model.ToDegrees(offset, int32(d.granularity), coordinate)
}
