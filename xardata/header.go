// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"bytes"
	"io"

	"github.com/luci/luci-go/common/errors"
)

// Magic is the fixed 32-bit value that opens every xar archive: the ASCII
// bytes "xar!" read as a big-endian uint32.
const Magic uint32 = 0x78617221

// Version is the only header version this package understands.
const Version uint16 = 1

// BaseHeaderSize is the length in bytes of the fixed-layout header used when
// CksumAlg != CksumOther.
const BaseHeaderSize = 28

// MaxTOCCksumNameLen is the number of trailing bytes reserved for
// TOCCksumName in the extended header layout, giving a total extended
// header size of 60 bytes.
const MaxTOCCksumNameLen = 32

// ExtendedHeaderSize is the length in bytes of the header used when
// CksumAlg == CksumOther, assuming the name field is fully reserved.
const ExtendedHeaderSize = BaseHeaderSize + MaxTOCCksumNameLen

// CksumAlg enumerates the four wire-level TOC checksum algorithm
// identifiers a header can carry.
type CksumAlg uint32

const (
	CksumNone  CksumAlg = 0
	CksumSHA1  CksumAlg = 1
	CksumMD5   CksumAlg = 2
	CksumOther CksumAlg = 3
)

// Header is the fixed prefix of a xar archive file, big-endian throughout.
type Header struct {
	// Size is the total header length in bytes, including the 28-byte base
	// and, for CksumOther, the trailing name field. Always a multiple of 4.
	Size uint16

	// Version is the header format version; always xardata.Version on
	// write.
	Version uint16

	// TOCLengthCompressed is the byte length of the compressed TOC block
	// that immediately follows the header.
	TOCLengthCompressed uint64

	// TOCLengthUncompressed is the inflated byte length of the TOC.
	TOCLengthUncompressed uint64

	// CksumAlg selects the digest used to protect the TOC.
	CksumAlg CksumAlg

	// TOCCksumName is the digest name used when CksumAlg == CksumOther. It
	// is ignored for the three well-known algorithms.
	TOCCksumName string
}

// Encode renders h as the big-endian byte sequence defined by spec §6. The
// Size field is ignored: the encoded size is ExtendedHeaderSize when
// CksumAlg == CksumOther and BaseHeaderSize otherwise.
func (h Header) Encode() ([]byte, error) {
	if h.CksumAlg == CksumOther {
		name := []byte(h.TOCCksumName)
		if len(name) >= MaxTOCCksumNameLen {
			return nil, errors.Reason("toc checksum name %(name)q too long for header").
				D("name", h.TOCCksumName).Err()
		}
		buf := make([]byte, 0, ExtendedHeaderSize)
		buf = PutUint32BE(buf, Magic)
		buf = PutUint16BE(buf, ExtendedHeaderSize)
		buf = PutUint16BE(buf, Version)
		buf = PutUint64BE(buf, h.TOCLengthCompressed)
		buf = PutUint64BE(buf, h.TOCLengthUncompressed)
		buf = PutUint32BE(buf, uint32(CksumOther))
		nameField := make([]byte, MaxTOCCksumNameLen)
		copy(nameField, name)
		buf = append(buf, nameField...)
		return buf, nil
	}

	buf := make([]byte, 0, BaseHeaderSize)
	buf = PutUint32BE(buf, Magic)
	buf = PutUint16BE(buf, BaseHeaderSize)
	buf = PutUint16BE(buf, Version)
	buf = PutUint64BE(buf, h.TOCLengthCompressed)
	buf = PutUint64BE(buf, h.TOCLengthUncompressed)
	buf = PutUint32BE(buf, uint32(h.CksumAlg))
	return buf, nil
}

// ReadHeader parses and validates a Header from r per spec §4.8 steps 1-3.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header

	magic, err := ReadUint32BE(r)
	if err != nil {
		return h, errors.Annotate(err).Reason("reading magic").Err()
	}
	if magic != Magic {
		return h, errors.Reason("bad magic: 0x%(magic)x").D("magic", magic).Err()
	}

	size, err := ReadUint16BE(r)
	if err != nil {
		return h, errors.Annotate(err).Reason("reading header size").Err()
	}
	if size < BaseHeaderSize {
		return h, errors.Reason("header size %(size)d smaller than base %(base)d").
			D("size", size).D("base", BaseHeaderSize).Err()
	}
	if size%4 != 0 {
		return h, errors.Reason("header size %(size)d not a multiple of 4").
			D("size", size).Err()
	}
	h.Size = size

	version, err := ReadUint16BE(r)
	if err != nil {
		return h, errors.Annotate(err).Reason("reading version").Err()
	}
	h.Version = version

	if h.TOCLengthCompressed, err = ReadUint64BE(r); err != nil {
		return h, errors.Annotate(err).Reason("reading compressed toc length").Err()
	}
	if h.TOCLengthUncompressed, err = ReadUint64BE(r); err != nil {
		return h, errors.Annotate(err).Reason("reading uncompressed toc length").Err()
	}

	alg, err := ReadUint32BE(r)
	if err != nil {
		return h, errors.Annotate(err).Reason("reading checksum algorithm").Err()
	}
	h.CksumAlg = CksumAlg(alg)

	remaining := int(size) - BaseHeaderSize
	if h.CksumAlg == CksumOther {
		if remaining <= 0 {
			return h, errors.Reason("cksum_alg=other requires a trailing name but header has no room").Err()
		}
		nameBuf := make([]byte, remaining)
		if err := ReadFull(r, nameBuf); err != nil {
			return h, errors.Annotate(err).Reason("reading toc checksum name").Err()
		}
		nul := bytes.IndexByte(nameBuf, 0)
		if nul < 0 {
			return h, errors.Reason("toc checksum name is not NUL-terminated within header").Err()
		}
		h.TOCCksumName = string(nameBuf[:nul])
	} else if remaining > 0 {
		// Tolerate unknown trailing bytes (spec §4.8 step 2): skip forward.
		if err := DiscardForward(r, int64(remaining)); err != nil {
			return h, errors.Annotate(err).Reason("skipping trailing header bytes").Err()
		}
	}

	return h, nil
}
