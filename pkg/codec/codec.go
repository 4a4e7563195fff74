// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package codec implements the little-endian, schema-driven binary
// encoding this protocol's wire types share: fixed-width little-endian integers,
// u32-length-prefixed strings and byte slices, u8 option tags, u32-length
// arrays and maps, and u8-discriminant tagged enums. It is a thin set of
// helpers over github.com/gagliardetto/binary, whose Borsh-style encoder
// already implements exactly these conventions.
package codec

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Encoder wraps bin.Encoder with the helpers the rest of the engine needs
// for optionals, tagged enums, and maps (bin.Encoder covers structs,
// strings, slices and fixed integers natively).
type Encoder struct {
	buf *bytes.Buffer
	enc *bin.Encoder
}

// NewEncoder returns an encoder that serializes into an internal buffer.
func NewEncoder() *Encoder {
	buf := new(bytes.Buffer)
	return &Encoder{buf: buf, enc: bin.NewBorshEncoder(buf)}
}

// Bytes returns the serialized payload so far.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// WriteBool writes a single byte, 1 for true.
func (e *Encoder) WriteBool(v bool) error { return e.enc.WriteBool(v) }

// WriteU8/U16/U32/U64 write fixed-width little-endian integers.
func (e *Encoder) WriteU8(v uint8) error   { return e.enc.WriteUint8(v) }
func (e *Encoder) WriteU16(v uint16) error { return e.enc.WriteUint16(v, bin.LE) }
func (e *Encoder) WriteU32(v uint32) error { return e.enc.WriteUint32(v, bin.LE) }
func (e *Encoder) WriteU64(v uint64) error { return e.enc.WriteUint64(v, bin.LE) }
func (e *Encoder) WriteI64(v int64) error  { return e.enc.WriteInt64(v, bin.LE) }

// WriteString writes a u32 length followed by the UTF-8 bytes.
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteU32(uint32(len(s))); err != nil {
		return err
	}
	_, err := e.buf.WriteString(s)
	return err
}

// WriteBytes writes a u32 length followed by the raw bytes.
func (e *Encoder) WriteBytes(b []byte) error {
	if err := e.WriteU32(uint32(len(b))); err != nil {
		return err
	}
	_, err := e.buf.Write(b)
	return err
}

// WriteDiscriminant writes the u8 tag of a tagged enum.
func (e *Encoder) WriteDiscriminant(d uint8) error { return e.WriteU8(d) }

// WriteArrayLen writes the u32 length prefix for an array/slice.
func (e *Encoder) WriteArrayLen(n int) error { return e.WriteU32(uint32(n)) }

// Encodable is implemented by every wire type in event/effect/broadcast.
type Encodable interface {
	EncodeTo(e *Encoder) error
}

// Decodable is the mirror of Encodable.
type Decodable interface {
	DecodeFrom(d *Decoder) error
}

// WriteOption writes the `some` tag and then v.EncodeTo, or just a `none`
// tag when v is nil.
func WriteOption(e *Encoder, v Encodable) error {
	if v == nil {
		return e.WriteU8(0)
	}
	if err := e.WriteU8(1); err != nil {
		return err
	}
	return v.EncodeTo(e)
}

// Decoder wraps bin.Decoder with the same optional/enum helpers.
type Decoder struct {
	dec *bin.Decoder
}

// NewDecoder returns a decoder reading from data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{dec: bin.NewBorshDecoder(data)}
}

func (d *Decoder) ReadBool() (bool, error)     { return d.dec.ReadBool() }
func (d *Decoder) ReadU8() (uint8, error)      { return d.dec.ReadUint8() }
func (d *Decoder) ReadU16() (uint16, error)    { return d.dec.ReadUint16(bin.LE) }
func (d *Decoder) ReadU32() (uint32, error)    { return d.dec.ReadUint32(bin.LE) }
func (d *Decoder) ReadU64() (uint64, error)    { return d.dec.ReadUint64(bin.LE) }
func (d *Decoder) ReadI64() (int64, error)     { return d.dec.ReadInt64(bin.LE) }

// ReadString reads a u32 length followed by that many UTF-8 bytes.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadU32()
	if err != nil {
		return "", err
	}
	b, err := d.readRaw(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a u32 length followed by that many raw bytes.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadU32()
	if err != nil {
		return nil, err
	}
	return d.readRaw(int(n))
}

func (d *Decoder) readRaw(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := d.dec.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("codec: short read at byte %d of %d: %w", i, n, err)
		}
		out[i] = b
	}
	return out, nil
}

// ReadDiscriminant reads the u8 tag of a tagged enum.
func (d *Decoder) ReadDiscriminant() (uint8, error) { return d.ReadU8() }

// ReadArrayLen reads the u32 length prefix for an array/slice.
func (d *Decoder) ReadArrayLen() (int, error) {
	n, err := d.ReadU32()
	return int(n), err
}

// ReadOption reads the tag byte and, if set, decodes into a freshly
// constructed value via newValue, returning the zero value otherwise.
func ReadOption[T Decodable](d *Decoder, newValue func() T) (T, error) {
	var zero T
	tag, err := d.ReadU8()
	if err != nil {
		return zero, err
	}
	if tag == 0 {
		return zero, nil
	}
	v := newValue()
	if err := v.DecodeFrom(d); err != nil {
		return zero, err
	}
	return v, nil
}

// Remaining reports whether any bytes are left to read.
func (d *Decoder) Remaining() bool { return d.dec.Remaining() > 0 }

// Marshal serializes any Encodable into a byte slice.
func Marshal(v Encodable) ([]byte, error) {
	e := NewEncoder()
	if err := v.EncodeTo(e); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Unmarshal deserializes data into a Decodable.
func Unmarshal(data []byte, v Decodable) error {
	d := NewDecoder(data)
	return v.DecodeFrom(d)
}
