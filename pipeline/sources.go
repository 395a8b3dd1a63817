// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pipeline

import (
	"bytes"
	"io"
	"os"

	"github.com/luci/luci-go/common/errors"
)

// FileSource opens path for reading and returns it as the producer end of
// an add pipeline (spec §4.6 "producers: file reader").
func FileSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err).Reason("opening %(path)q for add").D("path", path).Err()
	}
	return f, nil
}

// BufferSource wraps an in-memory payload as a producer, used for
// synthetic files the archive itself manufactures (e.g. subdocument
// bodies staged through the same pipeline as regular file content).
func BufferSource(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}

// EASource wraps a single extended attribute's raw value as a producer.
// Structurally identical to BufferSource; named separately because spec
// §4.6 calls out "EA reader" as its own producer kind.
func EASource(value []byte) io.ReadCloser {
	return BufferSource(value)
}
