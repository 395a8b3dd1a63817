// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHash(t *testing.T) {
	t.Parallel()

	Convey("Hash", t, func() {
		Convey("sha1 of 'Hello, World!' matches the known scenario S1 answer", func() {
			d, err := Sum(DigestSHA1, []byte("Hello, World!"))
			So(err, ShouldBeNil)
			So(d.Hex(), ShouldEqual, "0a0a9f2a6772942557ab5355d76af442f8f65e01")
		})

		Convey("sha1 of 'abc' matches the known scenario S2 answer", func() {
			d, err := Sum(DigestSHA1, []byte("abc"))
			So(err, ShouldBeNil)
			So(d.Hex(), ShouldEqual, "a9993e364706816aba3e25717850c26c9cd0d89d")
		})

		Convey("sha256 of 'abc' is a known-answer value", func() {
			d, err := Sum(DigestSHA256, []byte("abc"))
			So(err, ShouldBeNil)
			So(d.Hex(), ShouldEqual, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
		})

		Convey("none is a digest-less sink that still accepts updates", func() {
			h, err := NewHasher(DigestNone)
			So(err, ShouldBeNil)
			n, err := h.Write([]byte("anything"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len("anything"))
			So(h.Sum(nil), ShouldHaveLength, 0)
		})

		Convey("hex round trips", func() {
			d, err := Sum(DigestMD5, []byte("round trip"))
			So(err, ShouldBeNil)
			back, err := DigestFromHex(DigestMD5, d.Hex())
			So(err, ShouldBeNil)
			So(back.Bytes, ShouldResemble, d.Bytes)
		})

		Convey("unknown digest name is an error", func() {
			_, err := NewHasher("not-a-digest")
			So(err, ShouldNotBeNil)
		})

		Convey("CanonicalName resolves the legacy header aliases", func() {
			name, ok := CanonicalName(CksumSHA1, "")
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, DigestSHA1)

			name, ok = CanonicalName(CksumOther, "sha3-512")
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, DigestSHA3_512)

			_, ok = CanonicalName(CksumOther, "not-a-digest")
			So(ok, ShouldBeFalse)
		})
	})
}
