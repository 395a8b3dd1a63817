// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"github.com/luci/luci-go/common/errors"
)

// nullHash is the digest-less sink for DigestName "none": it accepts Write
// calls (no-op) and always finalizes to a zero-length digest. Lifted from
// the teacher's sardata/checksum.go nullHash.
type nullHash struct{}

var _ hash.Hash = nullHash{}

func (nullHash) Reset()                    {}
func (nullHash) BlockSize() int            { return 1 }
func (nullHash) Size() int                 { return 0 }
func (nullHash) Sum(buf []byte) []byte     { return buf }
func (nullHash) Write(p []byte) (int, error) { return len(p), nil }

// DigestName is the canonical, lower-case name of a digest as recorded in
// TOC attribute checksum/style, per spec §4.2 and I5.
type DigestName string

const (
	DigestNone    DigestName = "none"
	DigestMD5     DigestName = "md5"
	DigestSHA1    DigestName = "sha1"
	DigestSHA224  DigestName = "sha224"
	DigestSHA256  DigestName = "sha256"
	DigestSHA384  DigestName = "sha384"
	DigestSHA512  DigestName = "sha512"
	DigestBLAKE2s DigestName = "blake2s256"
	DigestBLAKE2b DigestName = "blake2b512"
	DigestSHA3_256 DigestName = "sha3-256"
	DigestSHA3_512 DigestName = "sha3-512"
)

// legacyAlias maps the header's three well-known CksumAlg enum values onto
// their canonical DigestName, per I5 ("legacy sha1/md5 aliases").
var legacyAlias = map[CksumAlg]DigestName{
	CksumNone: DigestNone,
	CksumSHA1: DigestSHA1,
	CksumMD5:  DigestMD5,
}

// CanonicalName resolves a header CksumAlg plus (for CksumOther) the
// trailing header name into the DigestName the rest of the archive should
// use for comparisons against checksum/style (spec §4.8 step 4).
func CanonicalName(alg CksumAlg, otherName string) (DigestName, bool) {
	if alg != CksumOther {
		name, ok := legacyAlias[alg]
		return name, ok
	}
	name := DigestName(otherName)
	if _, err := NewHasher(name); err != nil {
		return "", false
	}
	return name, true
}

// NewHasher returns a fresh hash.Hash for the named digest. DigestNone
// always succeeds and returns a digest-less sink that still accepts Write.
func NewHasher(name DigestName) (hash.Hash, error) {
	switch name {
	case DigestNone:
		return nullHash{}, nil
	case DigestMD5:
		return md5.New(), nil
	case DigestSHA1:
		return sha1.New(), nil
	case DigestSHA224:
		return sha256.New224(), nil
	case DigestSHA256:
		return sha256.New(), nil
	case DigestSHA384:
		return sha512.New384(), nil
	case DigestSHA512:
		return sha512.New(), nil
	case DigestBLAKE2s:
		h, err := blake2s.New256(nil)
		return h, err
	case DigestBLAKE2b:
		h, err := blake2b.New512(nil)
		return h, err
	case DigestSHA3_256:
		return sha3.New256(), nil
	case DigestSHA3_512:
		return sha3.New512(), nil
	}
	return nil, errors.Reason("unknown digest name %(name)q").D("name", string(name)).Err()
}

// KnownDigests enumerates every DigestName NewHasher accepts; used by
// options validation (toc-cksum, file-chksum) to reject unknown values
// eagerly per spec §7 "Unknown option value".
func KnownDigests() []DigestName {
	return []DigestName{
		DigestNone, DigestMD5, DigestSHA1, DigestSHA224, DigestSHA256,
		DigestSHA384, DigestSHA512, DigestBLAKE2s, DigestBLAKE2b,
		DigestSHA3_256, DigestSHA3_512,
	}
}

var knownDigestSet = func() map[DigestName]struct{} {
	m := make(map[DigestName]struct{})
	for _, d := range KnownDigests() {
		m[d] = struct{}{}
	}
	return m
}()

// ValidDigestName reports whether name is recognized by NewHasher.
func ValidDigestName(name DigestName) bool {
	_, ok := knownDigestSet[name]
	return ok
}

// Digest is a finalized digest value paired with the algorithm that
// produced it, round-tripping to and from lower-case hex text (spec §4.2).
type Digest struct {
	Name  DigestName
	Bytes []byte
}

// Hex renders the digest bytes as lower-case hexadecimal.
func (d Digest) Hex() string { return hex.EncodeToString(d.Bytes) }

// DigestFromHex parses a lower-case hex digest string previously produced by
// Hex, pairing it with name.
func DigestFromHex(name DigestName, s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, errors.Annotate(err).Reason("decoding hex digest for %(name)q").
			D("name", string(name)).Err()
	}
	return Digest{Name: name, Bytes: b}, nil
}

// Sum computes the digest of data under the named algorithm in one shot.
func Sum(name DigestName, data []byte) (Digest, error) {
	h, err := NewHasher(name)
	if err != nil {
		return Digest{}, err
	}
	h.Write(data)
	return Digest{Name: name, Bytes: h.Sum(nil)}, nil
}
