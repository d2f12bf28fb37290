// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wiring is the external wire boundary: the PreUnit_s wire struct
// and its hand-written binary codec. No proto toolchain is
// available here, so the encode/decode is written by hand over
// encoding/binary for fixed-width fields, following the typed wire-struct
// pattern used for hand-rolled protocol messages elsewhere in this stack
// instead of a generated marshaller.
package wiring

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/ethereal/gomel"
)

// ErrTruncated is returned by UnmarshalBinary when buf ends before a
// length-prefixed field is fully present.
var ErrTruncated = errors.New("wiring: truncated preunit wire buffer")

// PreUnitWire is the serialised form of a PreUnit: the crown travels as its
// heights array plus control hash, not as resolved parent references — the
// receiver re-resolves parents locally against its own DAG.
type PreUnitWire struct {
	ID          uint64
	Data        []byte
	RSData      []byte
	Heights     []int32
	ControlHash []byte
}

// FromPreUnit builds the wire form of pu.
func FromPreUnit(pu gomel.PreUnit) PreUnitWire {
	crown := pu.Crown()
	heights := make([]int32, len(crown.Heights))
	for i, h := range crown.Heights {
		heights[i] = int32(h)
	}
	return PreUnitWire{
		ID:          uint64(pu.ID()),
		Data:        pu.Data(),
		RSData:      pu.RandomSourceData(),
		Heights:     heights,
		ControlHash: crown.ControlHash,
	}
}

// ToPreUnit reconstructs a gomel.PreUnit from the wire form, recomputing
// its hash under algo exactly as the original sender did.
func (w PreUnitWire) ToPreUnit(algo gomel.DigestAlgorithm) gomel.PreUnit {
	height, creator, epoch := gomel.DecodeID(gomel.ID(w.ID))
	heights := make([]int, len(w.Heights))
	for i, h := range w.Heights {
		heights[i] = int(h)
	}
	crown := gomel.Crown{Heights: heights, ControlHash: append([]byte(nil), w.ControlHash...)}
	return gomel.NewPreUnit(creator, epoch, height, crown, w.Data, w.RSData, algo)
}

// MarshalBinary encodes w as:
//
//	id(8) | nHeights(4) | heights(4*n) | controlHashLen(4) | controlHash |
//	dataLen(4) | data | rsDataLen(4) | rsData
func (w PreUnitWire) MarshalBinary() ([]byte, error) {
	size := 8 + 4 + 4*len(w.Heights) + 4 + len(w.ControlHash) + 4 + len(w.Data) + 4 + len(w.RSData)
	buf := make([]byte, size)
	off := 0

	binary.BigEndian.PutUint64(buf[off:], w.ID)
	off += 8

	binary.BigEndian.PutUint32(buf[off:], uint32(len(w.Heights)))
	off += 4
	for _, h := range w.Heights {
		binary.BigEndian.PutUint32(buf[off:], uint32(h))
		off += 4
	}

	off = putBytes(buf, off, w.ControlHash)
	off = putBytes(buf, off, w.Data)
	putBytes(buf, off, w.RSData)

	return buf, nil
}

// UnmarshalBinary is the exact inverse of MarshalBinary.
func (w *PreUnitWire) UnmarshalBinary(buf []byte) error {
	off := 0
	id, off, err := takeUint64(buf, off)
	if err != nil {
		return err
	}

	n, off, err := takeUint32(buf, off)
	if err != nil {
		return err
	}
	heights := make([]int32, n)
	for i := range heights {
		v, next, err := takeUint32(buf, off)
		if err != nil {
			return err
		}
		heights[i] = int32(v)
		off = next
	}

	controlHash, off, err := takeBytes(buf, off)
	if err != nil {
		return err
	}
	data, off, err := takeBytes(buf, off)
	if err != nil {
		return err
	}
	rsData, _, err := takeBytes(buf, off)
	if err != nil {
		return err
	}

	w.ID = id
	w.Heights = heights
	w.ControlHash = controlHash
	w.Data = data
	w.RSData = rsData
	return nil
}

func putBytes(buf []byte, off int, b []byte) int {
	binary.BigEndian.PutUint32(buf[off:], uint32(len(b)))
	off += 4
	off += copy(buf[off:], b)
	return off
}

func takeUint64(buf []byte, off int) (uint64, int, error) {
	if off+8 > len(buf) {
		return 0, 0, ErrTruncated
	}
	return binary.BigEndian.Uint64(buf[off:]), off + 8, nil
}

func takeUint32(buf []byte, off int) (uint32, int, error) {
	if off+4 > len(buf) {
		return 0, 0, ErrTruncated
	}
	return binary.BigEndian.Uint32(buf[off:]), off + 4, nil
}

func takeBytes(buf []byte, off int) ([]byte, int, error) {
	n, off, err := takeUint32(buf, off)
	if err != nil {
		return nil, 0, err
	}
	if off+int(n) > len(buf) {
		return nil, 0, ErrTruncated
	}
	out := append([]byte(nil), buf[off:off+int(n)]...)
	return out, off + int(n), nil
}
