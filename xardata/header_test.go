// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHeader(t *testing.T) {
	t.Parallel()

	Convey("Header", t, func() {
		Convey("base layout round trips", func() {
			h := Header{
				Version:               Version,
				TOCLengthCompressed:   100,
				TOCLengthUncompressed: 200,
				CksumAlg:              CksumSHA1,
			}
			buf, err := h.Encode()
			So(err, ShouldBeNil)
			So(len(buf), ShouldEqual, BaseHeaderSize)
			So(buf[0:4], ShouldResemble, []byte{0x78, 0x61, 0x72, 0x21})

			got, err := ReadHeader(bytes.NewReader(buf))
			So(err, ShouldBeNil)
			So(got.Size, ShouldEqual, BaseHeaderSize)
			So(got.CksumAlg, ShouldEqual, CksumSHA1)
			So(got.TOCLengthCompressed, ShouldEqual, uint64(100))
			So(got.TOCLengthUncompressed, ShouldEqual, uint64(200))
		})

		Convey("extended layout carries the checksum name", func() {
			h := Header{
				Version:               Version,
				TOCLengthCompressed:   5,
				TOCLengthUncompressed: 9,
				CksumAlg:              CksumOther,
				TOCCksumName:          "sha3-512",
			}
			buf, err := h.Encode()
			So(err, ShouldBeNil)
			So(len(buf), ShouldEqual, ExtendedHeaderSize)

			got, err := ReadHeader(bytes.NewReader(buf))
			So(err, ShouldBeNil)
			So(got.CksumAlg, ShouldEqual, CksumOther)
			So(got.TOCCksumName, ShouldEqual, "sha3-512")
		})

		Convey("rejects bad magic", func() {
			buf := make([]byte, BaseHeaderSize)
			_, err := ReadHeader(bytes.NewReader(buf))
			So(err, ShouldNotBeNil)
		})

		Convey("rejects size not a multiple of 4", func() {
			h := Header{CksumAlg: CksumNone}
			buf, _ := h.Encode()
			buf[5] = byte(BaseHeaderSize + 1)
			_, err := ReadHeader(bytes.NewReader(buf))
			So(err, ShouldNotBeNil)
		})

		Convey("rejects cksum_alg=other with no NUL in the name field", func() {
			h := Header{CksumAlg: CksumOther, TOCCksumName: "sha1"}
			buf, err := h.Encode()
			So(err, ShouldBeNil)
			for i := BaseHeaderSize; i < len(buf); i++ {
				buf[i] = 'x'
			}
			_, err = ReadHeader(bytes.NewReader(buf))
			So(err, ShouldNotBeNil)
		})

		Convey("tolerates unknown trailing bytes under a non-other alg", func() {
			h := Header{CksumAlg: CksumSHA1}
			buf, _ := h.Encode()
			buf[5] = byte(BaseHeaderSize + 4)
			buf = append(buf, []byte{1, 2, 3, 4}...)
			got, err := ReadHeader(bytes.NewReader(buf))
			So(err, ShouldBeNil)
			So(got.Size, ShouldEqual, BaseHeaderSize+4)
		})
	})
}
