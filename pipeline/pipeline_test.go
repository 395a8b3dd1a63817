// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pipeline

import (
	"bytes"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/mackyle/xar/xardata"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	Convey("encode then decode recovers the original bytes and measurements", t, func() {
		payload := []byte("Hello, World!")
		var heap bytes.Buffer

		enc, result, err := NewEncodePipeline(&heap, xardata.CodecGzip, 6, xardata.DigestSHA1, xardata.DigestSHA1)
		So(err, ShouldBeNil)
		_, err = enc.Write(payload)
		So(err, ShouldBeNil)
		So(enc.Close(), ShouldBeNil)

		So(result.ExtractedSize, ShouldEqual, uint64(len(payload)))
		So(result.ExtractedChecksum.Hex(), ShouldEqual, "0a0a9f2a6772942557ab5355d76af442f8f65e01")
		So(result.ArchivedSize, ShouldEqual, uint64(heap.Len()))

		dec, err := NewDecodePipeline(bytes.NewReader(heap.Bytes()), int64(heap.Len()), xardata.CodecGzip,
			result.ArchivedChecksum, result.ExtractedChecksum)
		So(err, ShouldBeNil)
		got, err := io.ReadAll(dec)
		So(err, ShouldBeNil)
		So(dec.Close(), ShouldBeNil)
		So(got, ShouldResemble, payload)
	})

	Convey("a corrupted extracted checksum is detected", t, func() {
		payload := []byte("abc")
		var heap bytes.Buffer

		enc, result, err := NewEncodePipeline(&heap, xardata.CodecNone, 0, xardata.DigestSHA1, xardata.DigestSHA1)
		So(err, ShouldBeNil)
		_, err = enc.Write(payload)
		So(err, ShouldBeNil)
		So(enc.Close(), ShouldBeNil)

		bogus := result.ExtractedChecksum
		bogus.Bytes = append([]byte{}, bogus.Bytes...)
		bogus.Bytes[0] ^= 0xff

		dec, err := NewDecodePipeline(bytes.NewReader(heap.Bytes()), int64(heap.Len()), xardata.CodecNone,
			result.ArchivedChecksum, bogus)
		So(err, ShouldBeNil)
		_, err = io.ReadAll(dec)
		So(err, ShouldNotBeNil)
	})
}
