// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"io"
	"strconv"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/tocxml"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

// Open reads and validates a xar archive from r (spec §4.8). r must
// support random access: after the TOC is parsed, Open seeks back to the
// heap's declared checksum offset to verify the TOC digest (step 6).
func Open(r io.ReadSeeker, handler ErrorHandler) (*Archive, error) {
	header, err := xardata.ReadHeader(r)
	if err != nil {
		return nil, errors.Annotate(err).Reason("reading header").Err()
	}

	a := &Archive{
		mode:   ModeRead,
		opts:   defaultOptions(),
		source: r,
	}
	a.opts.handler = handler

	digestName, knownDigest := xardata.CanonicalName(header.CksumAlg, header.TOCCksumName)
	if !knownDigest {
		if a.report(SeverityWarning, ClassArchiveCreation, ErrorContext{
			Msg: "unknown toc checksum algorithm " + header.TOCCksumName + "; skipping verification",
		}) {
			return nil, errCancelledByHandler
		}
	}

	compressedTOC := make([]byte, header.TOCLengthCompressed)
	if err := xardata.ReadFull(r, compressedTOC); err != nil {
		return nil, errors.Annotate(err).Reason("reading compressed toc").Err()
	}

	var computedDigest []byte
	if knownDigest {
		h, err := xardata.NewHasher(digestName)
		if err != nil {
			return nil, err
		}
		h.Write(compressedTOC)
		computedDigest = h.Sum(nil)
	}

	tocCodec := xardata.CodecGzip
	if header.CksumAlg == xardata.CksumOther {
		tocCodec = xardata.CodecZlib
	}
	dec, err := tocCodec.NewDecoder(bytes.NewReader(compressedTOC))
	if err != nil {
		return nil, errors.Annotate(err).Reason("opening toc decompressor").Err()
	}
	rawXML, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Annotate(err).Reason("inflating toc").Err()
	}
	if err := dec.Close(); err != nil {
		return nil, errors.Annotate(err).Reason("closing toc decompressor").Err()
	}

	doc, err := tocxml.Decode(bytes.NewReader(rawXML))
	if err != nil {
		return nil, errors.Annotate(err).Reason("parsing toc xml").Err()
	}
	a.doc = doc

	if err := a.doc.Validate(); err != nil {
		return nil, errors.Annotate(err).Reason("validating file forest").Err()
	}
	// coalesce is a write-side-only option never recorded on the TOC itself;
	// a reader can't tell a coalesced duplicate from a malformed one, so I4
	// is enforced strictly here (spec §9: duplicate heap offsets without
	// coalesce are malformed and rejected on open).
	if err := a.validateHeapRanges(); err != nil {
		return nil, errors.Annotate(err).Reason("validating heap layout (I4)").Err()
	}

	a.heapStart = int64(header.Size) + int64(header.TOCLengthCompressed)

	if len(doc.Signatures) > 0 && header.CksumAlg == xardata.CksumNone {
		return nil, errors.New("signature present but cksum_alg=none (I6)")
	}

	if checksumProp, ok := toc.FindProperty(doc.Properties, "checksum"); ok && knownDigest {
		if style, ok := checksumProp.Attr("style"); ok && xardata.DigestName(style.Value) != digestName {
			return nil, errors.Reason("checksum/style %(style)q inconsistent with header algorithm %(alg)q (I5)").
				D("style", style.Value).D("alg", string(digestName)).Err()
		}
	}

	if knownDigest && len(computedDigest) > 0 {
		offsetProp, hasOffset := toc.FindProperty(doc.Properties, "checksum/offset")
		sizeProp, hasSize := toc.FindProperty(doc.Properties, "checksum/size")
		if !hasOffset || !hasSize {
			return nil, errors.New("toc declares a checksum algorithm but no checksum/offset or checksum/size")
		}
		offset, err := strconv.ParseUint(offsetProp.Value, 10, 64)
		if err != nil {
			return nil, errors.Annotate(err).Reason("parsing checksum/offset").Err()
		}
		size, err := strconv.ParseUint(sizeProp.Value, 10, 64)
		if err != nil {
			return nil, errors.Annotate(err).Reason("parsing checksum/size").Err()
		}
		stored := make([]byte, size)
		if _, err := r.Seek(a.heapStart+int64(offset), io.SeekStart); err != nil {
			return nil, errors.Annotate(err).Reason("seeking to toc digest in heap").Err()
		}
		if err := xardata.ReadFull(r, stored); err != nil {
			return nil, errors.Annotate(err).Reason("reading toc digest from heap").Err()
		}
		if !bytes.Equal(stored, computedDigest) {
			return nil, &ChecksumMismatchError{
				Stage:    "toc",
				Expected: xardata.Digest{Name: digestName, Bytes: stored}.Hex(),
				Actual:   xardata.Digest{Name: digestName, Bytes: computedDigest}.Hex(),
			}
		}
	}

	return a, nil
}
