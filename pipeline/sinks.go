// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pipeline

import (
	"bytes"
	"io"
	"os"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata"
)

// FileSink creates (or truncates) path and returns it as the sink end of
// an extract pipeline (spec §4.6 "sink: file writer"). Permission and
// ownership application happen afterward, once the sink is closed.
func FileSink(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, errors.Annotate(err).Reason("creating %(path)q for extract").D("path", path).Err()
	}
	return f, nil
}

// BufferSink accumulates written bytes in memory, for an EA value or a
// subdocument body staged through the same pipeline as a regular file.
type BufferSink struct {
	bytes.Buffer
}

// NewBufferSink returns an empty BufferSink ready to receive pipeline
// output.
func NewBufferSink() *BufferSink { return &BufferSink{} }

// Close is a no-op; callers read Bytes() after running the pipeline.
func (*BufferSink) Close() error { return nil }

// StdoutSink writes extracted bytes to standard output, honoring the
// `extract-stdout` option (spec §6).
func StdoutSink() io.WriteCloser {
	return xardata.NopWriteCloser(os.Stdout)
}
