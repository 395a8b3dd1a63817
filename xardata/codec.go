// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"bufio"
	"compress/bzip2"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"

	dsnetbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/luci/luci-go/common/errors"
)

// Codec is the MIME-style encoding style name recorded in a property's
// encoding/style attribute (spec §4.3). The same polymorphic interface
// (NewEncoder/NewDecoder) is implemented by every variant; Go's io.Writer
// and io.Reader already embody the "step(input, output) -> (consumed,
// produced, status)" contract spec §4.3 describes in the abstract — Write
// is a step whose status is implicit in its error, Read is a step whose
// caller-supplied buffer *is* the out-buffer/avail_out of the prose
// description — so there is no separate hand-rolled state machine here,
// matching the teacher's own CompressionScheme.Writer/Reader shape in
// sardata/compression.go.
type Codec string

// The five compression variants spec §4.3 enumerates (none, gzip, bzip2,
// lzma, xz), plus CodecZlib for RFC 6713 zlib framing, named by their wire
// MIME-style string.
const (
	CodecNone   Codec = "application/octet-stream"
	CodecGzip   Codec = "application/x-gzip"
	CodecZlib   Codec = "application/zlib"
	CodecBzip2  Codec = "application/x-bzip2"
	CodecLZMA   Codec = "application/x-lzma"
	CodecXZ     Codec = "application/x-xz"
)

// Valid reports whether c is a variant this registry implements.
func (c Codec) Valid() bool {
	switch c {
	case CodecNone, CodecGzip, CodecZlib, CodecBzip2, CodecLZMA, CodecXZ:
		return true
	}
	return false
}

// NewEncoder returns a WriteCloser that compresses bytes written to it and
// forwards the compressed stream to w. level is codec-specific tuning
// (spec option compression-arg); codecs without a tunable level ignore it.
func (c Codec) NewEncoder(w io.Writer, level int) (io.WriteCloser, error) {
	switch c {
	case CodecNone:
		return NopWriteCloser(w), nil
	case CodecGzip:
		return gzipWriter(w, level)
	case CodecZlib:
		return zlibWriter(w, level)
	case CodecBzip2:
		return bzip2Writer(w, level)
	case CodecLZMA:
		return lzmaWriter(w)
	case CodecXZ:
		return xzWriter(w)
	}
	return nil, errors.Reason("unknown encoding style %(style)q").D("style", string(c)).Err()
}

// NewDecoder returns a ReadCloser that reads compressed bytes from r and
// yields the decompressed stream. Per spec §4.3, a style of CodecGzip is
// tolerated even when the bytes are actually zlib-framed (some archives
// mislabel RFC 6713 zlib payloads as application/x-gzip), so the gzip case
// sniffs the two-byte magic before choosing a decoder.
func (c Codec) NewDecoder(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CodecNone:
		return NopReadCloser(r), nil
	case CodecGzip:
		return toleratedGzipReader(r)
	case CodecZlib:
		return zlibReader(r)
	case CodecBzip2:
		return bzip2Reader(r)
	case CodecLZMA:
		return lzmaReader(r)
	case CodecXZ:
		return xzReader(r)
	}
	return nil, errors.Reason("unknown encoding style %(style)q").D("style", string(c)).Err()
}

func gzipWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	return gzip.NewWriterLevel(w, clampFlateLevel(level))
}

func gzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// gzipMagic is the two-byte gzip member header; anything else under a
// CodecGzip style is assumed to be zlib framing (spec §4.3 tolerance).
var gzipMagic = [2]byte{0x1f, 0x8b}

func toleratedGzipReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, errors.Annotate(err).Reason("sniffing gzip/zlib framing").Err()
	}
	if len(peek) == 2 && peek[0] == gzipMagic[0] && peek[1] == gzipMagic[1] {
		return gzip.NewReader(br)
	}
	return zlib.NewReader(br)
}

func zlibWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level == 0 {
		level = zlib.DefaultCompression
	}
	return zlib.NewWriterLevel(w, clampFlateLevel(level))
}

func zlibReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

func clampFlateLevel(level int) int {
	if level < flate.HuffmanOnly {
		return flate.DefaultCompression
	}
	if level > flate.BestCompression {
		return flate.BestCompression
	}
	return level
}

// bzip2 has no stdlib encoder; github.com/dsnet/compress/bzip2 supplies one.
func bzip2Writer(w io.Writer, level int) (io.WriteCloser, error) {
	cfg := &dsnetbzip2.WriterConfig{}
	if level > 0 {
		cfg.Level = level
	}
	return dsnetbzip2.NewWriter(w, cfg)
}

func bzip2Reader(r io.Reader) (io.ReadCloser, error) {
	return NopReadCloser(bzip2.NewReader(r)), nil
}

func lzmaWriter(w io.Writer) (io.WriteCloser, error) {
	return lzma.NewWriter(w)
}

func lzmaReader(r io.Reader) (io.ReadCloser, error) {
	lr, err := lzma.NewReader(r)
	if err != nil {
		return nil, err
	}
	return NopReadCloser(lr), nil
}

func xzWriter(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func xzReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return NopReadCloser(xr), nil
}
