// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ethereal

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ethereal/creating"
	"github.com/luxfi/ethereal/gomel"
	"github.com/luxfi/ethereal/logging"
	"github.com/luxfi/log"
)

// Committee is the fixed set of BLS public keys an epoch proof is verified
// against, one per creator id.
type Committee struct {
	N          uint16
	Quorum     int
	PublicKeys []*bls.PublicKey
}

// ErrProofTooShort is returned when decoding a malformed combined proof.
var ErrProofTooShort = errors.New("ethereal: epoch proof shorter than its contributor bitmap")

// blsEpochProof is grounded on the BLS aggregate-signature pattern used by
// this stack's validator-signing and hybrid-consensus code: every contributing
// process signs independently with its own secret key share, and the
// combined proof is a plain BLS aggregate signature over the quorum of
// contributors that happened to arrive first, not a genuine t-of-n
// threshold signature. The aggregate's contributor set travels with the
// proof as a bitmap so any process can reconstruct the matching aggregate
// public key and verify it standalone.
type blsEpochProof struct {
	epoch     uint16
	self      uint16
	secret    *bls.SecretKey
	committee Committee
	log       log.Logger

	mu         sync.Mutex
	shares     map[uint16]*bls.Signature
	timingHash gomel.Digest
}

// NewBLSEpochProofFactory returns the creating.EpochProofFactory a
// Controller wires into its Creator, grounded on the BLS aggregate epoch
// proof design above.
func NewBLSEpochProofFactory(committee Committee, secret *bls.SecretKey, self uint16, logger log.Logger) creating.EpochProofFactory {
	logger = logging.OrNoOp(logger)
	return func(epoch uint16) creating.EpochProofBuilder {
		return &blsEpochProof{
			epoch:     epoch,
			self:      self,
			secret:    secret,
			committee: committee,
			log:       logger,
			shares:    make(map[uint16]*bls.Signature),
		}
	}
}

func signingMessage(epoch uint16, timingHash gomel.Digest) []byte {
	msg := make([]byte, 2, 2+len(timingHash))
	binary.BigEndian.PutUint16(msg, epoch)
	return append(msg, timingHash...)
}

func (b *blsEpochProof) BuildShare(timingUnit gomel.Unit) []byte {
	b.mu.Lock()
	b.timingHash = timingUnit.Hash()
	b.mu.Unlock()
	sig, err := b.secret.Sign(signingMessage(b.epoch, timingUnit.Hash()))
	if err != nil {
		b.log.Warn("bls signing failed, epoch proof share not built", "epoch", b.epoch, "err", err)
		return nil
	}
	return bls.SignatureToBytes(sig)
}

func (b *blsEpochProof) TryBuilding(u gomel.Unit) ([]byte, bool) {
	if u.Epoch() != b.epoch || len(u.Data()) == 0 {
		return nil, false
	}
	sig, err := bls.SignatureFromBytes(u.Data())
	if err != nil {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.shares[u.Creator()] = sig
	if len(b.shares) < b.committee.Quorum {
		return nil, false
	}

	contributors := make([]uint16, 0, len(b.shares))
	sigs := make([]*bls.Signature, 0, len(b.shares))
	for creator, s := range b.shares {
		contributors = append(contributors, creator)
		sigs = append(sigs, s)
	}
	agg, err := bls.AggregateSignatures(sigs)
	if err != nil {
		return nil, false
	}
	return encodeProof(b.committee.N, contributors, bls.SignatureToBytes(agg)), true
}

func (b *blsEpochProof) Verify(u gomel.Unit) bool {
	contributors, sigBytes, err := decodeProof(b.committee.N, u.Data())
	if err != nil {
		return false
	}
	sig, err := bls.SignatureFromBytes(sigBytes)
	if err != nil {
		return false
	}
	if len(contributors) < b.committee.Quorum {
		return false
	}

	pubKeys := make([]*bls.PublicKey, 0, len(contributors))
	for _, c := range contributors {
		if int(c) >= len(b.committee.PublicKeys) {
			return false
		}
		pubKeys = append(pubKeys, b.committee.PublicKeys[c])
	}
	aggKey, err := bls.AggregatePublicKeys(pubKeys)
	if err != nil {
		return false
	}

	b.mu.Lock()
	timingHash := b.timingHash
	b.mu.Unlock()
	return bls.Verify(aggKey, sig, signingMessage(b.epoch, timingHash))
}

// encodeProof packs the contributor bitmap (n bits, ceil(n/8) bytes) ahead
// of the raw aggregate signature bytes.
func encodeProof(n uint16, contributors []uint16, sig []byte) []byte {
	bitmapLen := int(n+7) / 8
	buf := make([]byte, bitmapLen+len(sig))
	for _, c := range contributors {
		buf[c/8] |= 1 << (c % 8)
	}
	copy(buf[bitmapLen:], sig)
	return buf
}

func decodeProof(n uint16, proof []byte) (contributors []uint16, sig []byte, err error) {
	bitmapLen := int(n+7) / 8
	if len(proof) < bitmapLen {
		return nil, nil, ErrProofTooShort
	}
	for c := uint16(0); c < n; c++ {
		if proof[c/8]&(1<<(c%8)) != 0 {
			contributors = append(contributors, c)
		}
	}
	return contributors, proof[bitmapLen:], nil
}
