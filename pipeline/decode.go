// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pipeline

import (
	"bytes"
	"fmt"
	"io"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata"
)

// ChecksumMismatchError reports that a stage's computed digest did not
// match the value recorded in the TOC (spec §4.6, §7 "archived or
// extracted checksum mismatch").
type ChecksumMismatchError struct {
	Stage    string
	Expected xardata.Digest
	Actual   xardata.Digest
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s checksum mismatch: expected %s got %s", e.Stage, e.Expected.Hex(), e.Actual.Hex())
}

// NewDecodePipeline builds the extract-side module chain over heapRange,
// exactly archivedLength bytes read from the archive's heap: verifies the
// archived checksum, decompresses with codec, and returns a Reader that
// verifies the extracted checksum as its final bytes are consumed (on the
// read that returns io.EOF).
func NewDecodePipeline(heapRange io.Reader, archivedLength int64, codec xardata.Codec, expectedArchived, expectedExtracted xardata.Digest) (io.ReadCloser, error) {
	limited := io.LimitReader(heapRange, archivedLength)

	archivedHash, err := xardata.NewHasher(expectedArchived.Name)
	if err != nil {
		return nil, err
	}
	archivedTee := io.TeeReader(limited, archivedHash)

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, archivedTee); err != nil {
		return nil, errors.Annotate(err).Reason("reading archived payload").Err()
	}
	actualArchived := xardata.Digest{Name: expectedArchived.Name, Bytes: archivedHash.Sum(nil)}
	if expectedArchived.Name != xardata.DigestNone && !bytes.Equal(actualArchived.Bytes, expectedArchived.Bytes) {
		return nil, &ChecksumMismatchError{Stage: "archived", Expected: expectedArchived, Actual: actualArchived}
	}

	dec, err := codec.NewDecoder(buf)
	if err != nil {
		return nil, err
	}

	extractedHash, err := xardata.NewHasher(expectedExtracted.Name)
	if err != nil {
		return nil, err
	}
	tee := io.TeeReader(dec, extractedHash)

	verified := false
	verify := func() error {
		if verified {
			return nil
		}
		verified = true
		actual := xardata.Digest{Name: expectedExtracted.Name, Bytes: extractedHash.Sum(nil)}
		if expectedExtracted.Name != xardata.DigestNone && !bytes.Equal(actual.Bytes, expectedExtracted.Bytes) {
			return &ChecksumMismatchError{Stage: "extracted", Expected: expectedExtracted, Actual: actual}
		}
		return nil
	}

	return xardata.ReadCloserWithClose(&verifyOnEOFReader{r: tee, verify: verify}, func() error {
		if err := dec.Close(); err != nil {
			return err
		}
		return verify()
	}), nil
}

// verifyOnEOFReader calls verify the moment the wrapped reader signals
// io.EOF, so a caller that drains the stream with io.Copy sees a checksum
// mismatch as the error from that Copy rather than only on a later Close.
type verifyOnEOFReader struct {
	r      io.Reader
	verify func() error
}

func (v *verifyOnEOFReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if err == io.EOF {
		if verr := v.verify(); verr != nil {
			return n, verr
		}
	}
	return n, err
}
