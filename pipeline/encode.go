// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pipeline

import (
	"io"

	"github.com/luci/luci-go/common/iotools"
	"github.com/mackyle/xar/xardata"
)

// NewEncodePipeline builds the add-side module chain: writes presented to
// the returned WriteCloser are counted and hashed as extracted
// (uncompressed) bytes, compressed with codec, then counted and hashed
// again as archived bytes on their way to heap. Closing the returned
// WriteCloser flushes the compressor and populates result.
//
// heap is not closed; the caller owns its lifetime (it is the archive's
// shared heap writer).
func NewEncodePipeline(heap io.Writer, codec xardata.Codec, level int, extractedDigest, archivedDigest xardata.DigestName) (io.WriteCloser, *Result, error) {
	result := &Result{}

	archivedHash, err := xardata.NewHasher(archivedDigest)
	if err != nil {
		return nil, nil, err
	}
	archivedCounter := &iotools.CountingWriter{Writer: io.MultiWriter(heap, archivedHash)}

	enc, err := codec.NewEncoder(archivedCounter, level)
	if err != nil {
		return nil, nil, err
	}

	extractedHash, err := xardata.NewHasher(extractedDigest)
	if err != nil {
		return nil, nil, err
	}
	extractedCounter := &iotools.CountingWriter{Writer: io.MultiWriter(enc, extractedHash)}

	w := xardata.WriteCloserWithClose(extractedCounter, func() error {
		if err := enc.Close(); err != nil {
			return err
		}
		result.ExtractedSize = uint64(extractedCounter.Count)
		result.ExtractedChecksum = xardata.Digest{Name: extractedDigest, Bytes: extractedHash.Sum(nil)}
		result.ArchivedSize = uint64(archivedCounter.Count)
		result.ArchivedChecksum = xardata.Digest{Name: archivedDigest, Bytes: archivedHash.Sum(nil)}
		return nil
	})
	return w, result, nil
}
