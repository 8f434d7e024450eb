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
	"errors"
	"io"
)

// Type is a protobuf wire type.
type Type byte

// Wire types.  StartGroup and EndGroup are legacy and only ever skipped.
const (
	TypeVarint     Type = 0
	TypeFixed64    Type = 1
	TypeBytes      Type = 2
	TypeStartGroup Type = 3
	TypeEndGroup   Type = 4
	TypeFixed32    Type = 5
)

// Errors reported while walking a message body.
var (
	ErrMalformedField     = errors.New("malformed field")
	ErrUnexpectedWireType = errors.New("unexpected wire type")
)

// Scanner iterates the fields of a single protobuf message body.  After Next
// reports a field, exactly one value accessor or Skip must be called before
// the following Next.
type Scanner struct {
	buf []byte
	pos int
}

// NewScanner returns a Scanner over one message body.
func NewScanner(buf []byte) Scanner {
	return Scanner{buf: buf}
}

// Next reads the tag of the next field and returns its field number and wire
// type.  It returns io.EOF when the message body ends at a field boundary.
func (s *Scanner) Next() (int, Type, error) {
	if s.pos == len(s.buf) {
		return 0, 0, io.EOF
	}

	key, n, err := Uvarint(s.buf[s.pos:])
	if err != nil {
		return 0, 0, err
	}
	s.pos += n

	num := int(key >> 3)
	typ := Type(key & 7)

	if num == 0 || typ > TypeFixed32 {
		return 0, 0, ErrMalformedField
	}

	return num, typ, nil
}

// Uvarint consumes the current varint value.
func (s *Scanner) Uvarint() (uint64, error) {
	v, n, err := Uvarint(s.buf[s.pos:])
	if err != nil {
		return 0, err
	}
	s.pos += n

	return v, nil
}

// Int64 consumes the current varint value as a two's-complement signed integer.
func (s *Scanner) Int64() (int64, error) {
	v, err := s.Uvarint()

	return int64(v), err
}

// Svarint consumes the current zig-zag encoded varint value.
func (s *Scanner) Svarint() (int64, error) {
	v, err := s.Uvarint()
	if err != nil {
		return 0, err
	}

	return Unzigzag(v), nil
}

// Bytes consumes the current length-delimited value and returns the enclosed
// bytes as a sub-slice of the message body.
func (s *Scanner) Bytes() ([]byte, error) {
	v, n, err := Uvarint(s.buf[s.pos:])
	if err != nil {
		return nil, err
	}

	if v > uint64(len(s.buf)-s.pos-n) {
		return nil, ErrMalformedField
	}
	s.pos += n

	b := s.buf[s.pos : s.pos+int(v)]
	s.pos += int(v)

	return b, nil
}

// String consumes the current length-delimited value as a string.
func (s *Scanner) String() (string, error) {
	b, err := s.Bytes()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Skip advances past the current value without interpreting it.  Unknown
// fields of any wire type can be skipped this way, which keeps the scanner
// forward compatible.
func (s *Scanner) Skip(typ Type) error {
	switch typ {
	case TypeVarint:
		_, err := s.Uvarint()

		return err

	case TypeFixed64:
		if len(s.buf)-s.pos < 8 {
			return ErrMalformedField
		}
		s.pos += 8

		return nil

	case TypeBytes:
		_, err := s.Bytes()

		return err

	case TypeStartGroup:
		return s.skipGroup()

	case TypeEndGroup:
		// An end-group with no matching start is tolerated at the top
		// level of a skipped message.
		return nil

	case TypeFixed32:
		if len(s.buf)-s.pos < 4 {
			return ErrMalformedField
		}
		s.pos += 4

		return nil

	default:
		return ErrUnexpectedWireType
	}
}

// skipGroup advances past a legacy group, honoring nesting.
func (s *Scanner) skipGroup() error {
	depth := 1

	for depth > 0 {
		key, n, err := Uvarint(s.buf[s.pos:])
		if err != nil {
			return err
		}
		s.pos += n

		typ := Type(key & 7)

		switch typ {
		case TypeStartGroup:
			depth++
		case TypeEndGroup:
			depth--
		default:
			if err := s.Skip(typ); err != nil {
				return err
			}
		}
	}

	return nil
}

// Len reports the number of unread bytes in the message body.
func (s *Scanner) Len() int {
	return len(s.buf) - s.pos
}
