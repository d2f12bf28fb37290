// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gomel

import "github.com/luxfi/ids"

// ID packs (creator, epoch, height) into a single 64-bit value: the top 16
// bits hold the creator, the next 16 the epoch, and the low 32 the height.
// This mirrors the layout assumed by the wire struct in wiring.PreUnitWire.
type ID uint64

// PackID builds the 64-bit unit id for a (height, creator, epoch) triple.
// height must fit in 32 bits, creator and epoch in 16 bits each.
func PackID(height int, creator uint16, epoch uint16) ID {
	return ID(uint64(creator)<<48 | uint64(epoch)<<32 | uint64(uint32(height)))
}

// DecodeID is the exact inverse of PackID.
func DecodeID(id ID) (height int, creator uint16, epoch uint16) {
	creator = uint16(id >> 48)
	epoch = uint16(id >> 32)
	height = int(uint32(id))
	return
}

// PreUnit is an unsigned, unsituated DAG vertex: a creator's claim about its
// height, epoch, parent crown and payload, not yet resolved against a DAG.
type PreUnit interface {
	Creator() uint16
	Epoch() uint16
	Height() int
	Crown() Crown
	Data() []byte
	RandomSourceData() []byte
	Hash() Digest

	// ID returns PackID(Height(), Creator(), Epoch()).
	ID() ID
}

type preUnit struct {
	creator uint16
	epoch   uint16
	height  int
	crown   Crown
	data    []byte
	rsData  []byte
	hash    Digest
}

// NewPreUnit builds a PreUnit from its fields and computes its hash as
// H(id ‖ crown ‖ data ‖ rsData) under algo. It does not validate the crown
// against height/creator/epoch; the DAG does that on add.
func NewPreUnit(creator, epoch uint16, height int, crown Crown, data, rsData []byte, algo DigestAlgorithm) PreUnit {
	pu := &preUnit{creator: creator, epoch: epoch, height: height, crown: crown, data: data, rsData: rsData}
	pu.hash = pu.computeHash(algo)
	return pu
}

func (pu *preUnit) computeHash(algo DigestAlgorithm) Digest {
	idBuf := idBytes(PackID(pu.height, pu.creator, pu.epoch))
	parts := [][]byte{idBuf, crownBytes(pu.crown), pu.data, pu.rsData}
	return sum(algo, parts...)
}

func idBytes(id ID) []byte {
	buf := make([]byte, 8)
	v := uint64(id)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

func crownBytes(c Crown) []byte {
	buf := make([]byte, 0, 4*len(c.Heights)+len(c.ControlHash))
	for _, h := range c.Heights {
		u := uint32(int32(h))
		buf = append(buf, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
	}
	buf = append(buf, c.ControlHash...)
	return buf
}

func (pu *preUnit) Creator() uint16          { return pu.creator }
func (pu *preUnit) Epoch() uint16            { return pu.epoch }
func (pu *preUnit) Height() int              { return pu.height }
func (pu *preUnit) Crown() Crown             { return pu.crown }
func (pu *preUnit) Data() []byte             { return pu.data }
func (pu *preUnit) RandomSourceData() []byte { return pu.rsData }
func (pu *preUnit) Hash() Digest             { return pu.hash }
func (pu *preUnit) ID() ID                   { return PackID(pu.height, pu.creator, pu.epoch) }

// HashID converts a unit hash into an ids.ID so that callers already using
// github.com/luxfi/ids elsewhere in a committee's stack can compare unit
// hashes without a conversion. Digests shorter than 32 bytes are left-padded
// with zero; SHA-512 digests are truncated to their first 32 bytes.
func HashID(d Digest) ids.ID {
	var out ids.ID
	if len(d) >= len(out) {
		copy(out[:], d[:len(out)])
		return out
	}
	copy(out[len(out)-len(d):], d)
	return out
}
