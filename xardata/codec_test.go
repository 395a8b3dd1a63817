// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"bytes"
	"io/ioutil"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func roundTrip(t *testing.T, c Codec, level int) {
	t.Helper()

	payload := []byte("The quick brown fox jumps over the lazy dog. " +
		"The quick brown fox jumps over the lazy dog.")

	buf := &bytes.Buffer{}
	w, err := c.NewEncoder(buf, level)
	So(err, ShouldBeNil)
	_, err = w.Write(payload)
	So(err, ShouldBeNil)
	So(w.Close(), ShouldBeNil)

	r, err := c.NewDecoder(buf)
	So(err, ShouldBeNil)
	got, err := ioutil.ReadAll(r)
	So(err, ShouldBeNil)
	So(r.Close(), ShouldBeNil)
	So(got, ShouldResemble, payload)
}

func TestCodec(t *testing.T) {
	t.Parallel()

	Convey("Codec", t, func() {
		Convey("none round trips unchanged", func() {
			roundTrip(t, CodecNone, 0)
		})
		Convey("gzip round trips", func() {
			roundTrip(t, CodecGzip, 9)
		})
		Convey("zlib round trips", func() {
			roundTrip(t, CodecZlib, 9)
		})
		Convey("bzip2 round trips", func() {
			roundTrip(t, CodecBzip2, 9)
		})
		Convey("lzma round trips", func() {
			roundTrip(t, CodecLZMA, 0)
		})
		Convey("xz round trips", func() {
			roundTrip(t, CodecXZ, 0)
		})

		Convey("gzip style tolerates zlib framing", func() {
			payload := []byte("tolerated")
			buf := &bytes.Buffer{}
			w, err := CodecZlib.NewEncoder(buf, 6)
			So(err, ShouldBeNil)
			_, err = w.Write(payload)
			So(err, ShouldBeNil)
			So(w.Close(), ShouldBeNil)

			r, err := CodecGzip.NewDecoder(buf)
			So(err, ShouldBeNil)
			got, err := ioutil.ReadAll(r)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, payload)
		})

		Convey("Valid rejects unknown styles", func() {
			So(Codec("application/x-bogus").Valid(), ShouldBeFalse)
			So(CodecXZ.Valid(), ShouldBeTrue)
		})
	})
}
