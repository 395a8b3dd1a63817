// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/signature"
	"github.com/mackyle/xar/tocxml"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

const creationTimeLayout = "2006-01-02T15:04:05Z"

// New creates an empty Archive and reserves heap space for its default TOC
// digest (spec §4.9 step 2 happens here, not at Close, because heap offsets
// for files added afterward must already account for it).
func New() (*Archive, error) {
	heap, err := xardata.NewHeap()
	if err != nil {
		return nil, err
	}
	a := &Archive{
		mode:       ModeWrite,
		opts:       defaultOptions(),
		doc:        toc.NewDocument(),
		heap:       heap,
		byInode:    map[inodeKey]*toc.File{},
		byChecksum: map[string]coalesceEntry{},
	}
	if err := a.reserveDigestSpace(); err != nil {
		return nil, err
	}
	return a, nil
}

func digestSize(name xardata.DigestName) (int, error) {
	h, err := xardata.NewHasher(name)
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}

func (a *Archive) reserveDigestSpace() error {
	size, err := digestSize(a.opts.tocCksum)
	if err != nil {
		return err
	}
	_, err = a.heap.Reserve(uint64(size))
	return err
}

// resetHeapForNewDigest recreates the (still-empty) heap when toc-cksum
// changes before any file or signature has reserved space, so the new
// digest's byte count is reserved at heap offset 0.
func (a *Archive) resetHeapForNewDigest() error {
	if err := a.heap.Close(); err != nil {
		return err
	}
	heap, err := xardata.NewHeap()
	if err != nil {
		return err
	}
	a.heap = heap
	return a.reserveDigestSpace()
}

// AddSignature reserves declaredLen heap bytes for a new signature, to be
// filled at Close time by signer. Must be called before any file is added
// (spec §4.11); doing otherwise returns an error and reserves nothing.
func (a *Archive) AddSignature(style string, declaredLen int64, signer signature.SignerFunc, ctx interface{}) (*signature.Reservation, error) {
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	if len(a.doc.Files) > 0 {
		return nil, errors.New("signature must be added before any file (spec §4.11)")
	}
	offset, err := a.heap.Reserve(uint64(declaredLen))
	if err != nil {
		return nil, err
	}
	res := signature.New(style, declaredLen, offset, signer, ctx)
	a.reservations = append(a.reservations, res)
	return res, nil
}

func cksumAlgFor(name xardata.DigestName) xardata.CksumAlg {
	switch name {
	case xardata.DigestNone:
		return xardata.CksumNone
	case xardata.DigestSHA1:
		return xardata.CksumSHA1
	case xardata.DigestMD5:
		return xardata.CksumMD5
	}
	return xardata.CksumOther
}

// tocCodec picks the legacy-gzip or RFC 6713 zlib framing for the
// compressed TOC block (spec I8, option rfc6713-format).
func (a *Archive) tocCodec() xardata.Codec {
	if a.opts.rfc6713Format || cksumAlgFor(a.opts.tocCksum) == xardata.CksumOther {
		return xardata.CodecZlib
	}
	return xardata.CodecGzip
}

// validateHeapRanges checks I4 across every file's recorded data range. The
// range length is `data/length` (the archived, on-disk byte count) — the
// actual span of heap bytes the file occupies — not `data/size` (the
// extracted/original byte count), per spec §6.
func (a *Archive) validateHeapRanges() error {
	var ranges []toc.DataRange
	err := a.doc.WalkFiles(func(_ []string, f *toc.File) error {
		offsetProp, ok := toc.FindProperty(f.Properties, "data/offset")
		if !ok {
			return nil
		}
		lengthProp, _ := toc.FindProperty(f.Properties, "data/length")
		offset, perr := strconv.ParseUint(offsetProp.Value, 10, 64)
		if perr != nil {
			return errors.Annotate(perr).Reason("parsing data/offset for %(name)q").D("name", f.Name()).Err()
		}
		length, _ := strconv.ParseUint(lengthProp.Value, 10, 64)
		ranges = append(ranges, toc.DataRange{FileID: f.ID, Offset: offset, Length: length})
		return nil
	})
	if err != nil {
		return err
	}
	return toc.ValidateRanges(ranges, a.opts.coalesce)
}

// Close finalizes archive creation: serializes and compresses the TOC,
// digests it, writes the header/TOC/digest/signatures, then appends the
// payload heap (spec §4.9).
func (a *Archive) Close(w io.Writer) (err error) {
	if a.mode != ModeWrite {
		return errors.New("archive is not open for writing")
	}
	if a.closed {
		return errors.New("archive already closed")
	}
	a.closed = true
	defer a.heap.Close()

	if err := a.doc.Validate(); err != nil {
		return errors.Annotate(err).Reason("validating file forest before close").Err()
	}
	if err := a.validateHeapRanges(); err != nil {
		return errors.Annotate(err).Reason("validating heap layout before close").Err()
	}

	digestSz, err := digestSize(a.opts.tocCksum)
	if err != nil {
		return err
	}
	toc.SetProperty(a.doc.Properties, "checksum/offset", "0", true)
	toc.SetProperty(a.doc.Properties, "checksum/size", strconv.Itoa(digestSz), true)
	if checksumProp, ok := toc.FindProperty(a.doc.Properties, "checksum"); ok {
		checksumProp.SetAttr("style", string(a.opts.tocCksum))
	}
	toc.SetProperty(a.doc.Properties, "creation-time", time.Now().UTC().Format(creationTimeLayout), true)
	for _, res := range a.reservations {
		a.doc.Signatures = append(a.doc.Signatures, res.ToTOC())
	}

	var rawXML bytes.Buffer
	if err := tocxml.Encode(a.doc, &rawXML); err != nil {
		return errors.Annotate(err).Reason("serializing toc").Err()
	}

	tocHasher, err := xardata.NewHasher(a.opts.tocCksum)
	if err != nil {
		return err
	}
	var compressedTOC bytes.Buffer
	compressEnc, err := a.tocCodec().NewEncoder(io.MultiWriter(&compressedTOC, tocHasher), a.opts.compressionArg)
	if err != nil {
		return errors.Annotate(err).Reason("building toc compressor").Err()
	}
	if _, err := compressEnc.Write(rawXML.Bytes()); err != nil {
		return errors.Annotate(err).Reason("compressing toc").Err()
	}
	if err := compressEnc.Close(); err != nil {
		return errors.Annotate(err).Reason("flushing toc compressor").Err()
	}

	header := xardata.Header{
		Version:               xardata.Version,
		TOCLengthCompressed:   uint64(compressedTOC.Len()),
		TOCLengthUncompressed: uint64(rawXML.Len()),
		CksumAlg:              cksumAlgFor(a.opts.tocCksum),
		TOCCksumName:          string(a.opts.tocCksum),
	}
	headerBytes, err := header.Encode()
	if err != nil {
		return errors.Annotate(err).Reason("encoding header").Err()
	}
	if err := xardata.WriteFull(w, headerBytes); err != nil {
		return errors.Annotate(err).Reason("writing header").Err()
	}
	if err := xardata.WriteFull(w, compressedTOC.Bytes()); err != nil {
		return errors.Annotate(err).Reason("writing compressed toc").Err()
	}

	digestBytes := tocHasher.Sum(nil)
	if digestSz > 0 {
		if err := a.heap.WriteAt(0, digestBytes); err != nil {
			return errors.Annotate(err).Reason("writing toc digest into heap").Err()
		}
	}
	for _, res := range a.reservations {
		if err := res.Sign(a.heap, digestBytes); err != nil {
			return errors.Annotate(err).Reason("signing with style %(style)q").D("style", res.Style).Err()
		}
	}

	if err := a.heap.CopyTo(w); err != nil {
		return errors.Annotate(err).Reason("appending heap").Err()
	}
	return nil
}
