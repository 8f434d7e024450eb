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

// Package pbftest builds wire-level PBF fixtures for tests.
package pbftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"

	"m4o.io/osmpbf/internal/wire"
)

// Key encodes a field tag.
func Key(num int, typ wire.Type) []byte {
	return wire.AppendUvarint(nil, uint64(num)<<3|uint64(typ))
}

// Varint encodes a varint field.
func Varint(num int, v uint64) []byte {
	return wire.AppendUvarint(Key(num, wire.TypeVarint), v)
}

// Svarint encodes a zig-zag varint field.
func Svarint(num int, v int64) []byte {
	return wire.AppendSvarint(Key(num, wire.TypeVarint), v)
}

// Bytes encodes a length-delimited field.
func Bytes(num int, b []byte) []byte {
	out := wire.AppendUvarint(Key(num, wire.TypeBytes), uint64(len(b)))

	return append(out, b...)
}

// String encodes a string field.
func String(num int, s string) []byte {
	return Bytes(num, []byte(s))
}

// PackedU encodes a packed repeated uint field.
func PackedU(num int, vs ...uint64) []byte {
	var body []byte
	for _, v := range vs {
		body = wire.AppendUvarint(body, v)
	}

	return Bytes(num, body)
}

// PackedS encodes a packed repeated zig-zag field.
func PackedS(num int, vs ...int64) []byte {
	var body []byte
	for _, v := range vs {
		body = wire.AppendSvarint(body, v)
	}

	return Bytes(num, body)
}

// PackedDelta delta-codes absolute values and encodes them as a packed
// zig-zag field.
func PackedDelta(num int, vs ...int64) []byte {
	var body []byte
	var prev int64
	for _, v := range vs {
		body = wire.AppendSvarint(body, v-prev)
		prev = v
	}

	return Bytes(num, body)
}

// Concat joins encoded parts into one message body.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

// StringTable encodes a StringTable message body.  Index 0 should be the
// empty string; passing something else is how tests go off the rails on
// purpose.
func StringTable(strs ...string) []byte {
	var out []byte
	for _, s := range strs {
		out = append(out, String(1, s)...)
	}

	return out
}

// PrimitiveBlock assembles a block body from a string table and group
// bodies.  Extra encoded fields (granularity and friends) follow.
func PrimitiveBlock(table []byte, groups [][]byte, extra ...[]byte) []byte {
	out := Bytes(1, table)
	for _, g := range groups {
		out = append(out, Bytes(2, g)...)
	}

	return Concat(append([][]byte{out}, extra...)...)
}

// DenseNodes assembles a group body holding one DenseNodes message from
// absolute ids and coordinates plus a raw keys_vals stream.
func DenseNodes(ids, lats, lons []int64, keysVals []uint64) []byte {
	msg := Concat(
		PackedDelta(1, ids...),
		PackedDelta(8, lats...),
		PackedDelta(9, lons...),
	)
	if keysVals != nil {
		msg = append(msg, PackedU(10, keysVals...)...)
	}

	return Bytes(2, msg)
}

// Way assembles a Way message body from absolute refs.
func Way(id int64, keys, vals []uint64, refs []int64) []byte {
	return Concat(
		Varint(1, uint64(id)),
		PackedU(2, keys...),
		PackedU(3, vals...),
		PackedDelta(8, refs...),
	)
}

// Relation assembles a Relation message body from absolute member ids.
func Relation(id int64, keys, vals, roles []uint64, memids []int64, types []uint64) []byte {
	return Concat(
		Varint(1, uint64(id)),
		PackedU(2, keys...),
		PackedU(3, vals...),
		PackedU(8, roles...),
		PackedDelta(9, memids...),
		PackedU(10, types...),
	)
}

// Group wraps entity message bodies as repeated fields of a group body.
func Group(num int, msgs ...[]byte) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, Bytes(num, m)...)
	}

	return out
}

// HeaderBlock assembles a HeaderBlock body with the given features.
func HeaderBlock(required, optional []string, extra ...[]byte) []byte {
	var out []byte
	for _, f := range required {
		out = append(out, String(4, f)...)
	}
	for _, f := range optional {
		out = append(out, String(5, f)...)
	}

	return Concat(append([][]byte{out}, extra...)...)
}

// RawBlob wraps a block body in a Blob message with raw data.
func RawBlob(payload []byte) []byte {
	return Concat(
		Bytes(1, payload),
		Varint(2, uint64(len(payload))),
	)
}

// ZlibBlob wraps a block body in a Blob message with zlib data.
func ZlibBlob(payload []byte) []byte {
	return ZlibBlobDeclaring(payload, len(payload))
}

// ZlibBlobDeclaring compresses payload but declares rawSize, letting tests
// lie about the uncompressed length.
func ZlibBlobDeclaring(payload []byte, rawSize int) []byte {
	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	return Concat(
		Varint(2, uint64(rawSize)),
		Bytes(3, buf.Bytes()),
	)
}

// Frame frames a Blob message: length-prefixed BlobHeader, then the blob.
func Frame(blobType string, blob []byte) []byte {
	header := Concat(
		String(1, blobType),
		Varint(3, uint64(len(blob))),
	)

	out := binary.BigEndian.AppendUint32(nil, uint32(len(header)))
	out = append(out, header...)

	return append(out, blob...)
}

// File concatenates frames into a container stream.
func File(frames ...[]byte) []byte {
	return Concat(frames...)
}
