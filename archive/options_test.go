// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	Convey("SetOption/GetOption round trip recognized options", t, func() {
		a, err := New()
		So(err, ShouldBeNil)

		So(a.SetOption(OptFileCksum, "md5"), ShouldBeNil)
		v, err := a.GetOption(OptFileCksum)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "md5")

		So(a.SetOption(OptCoalesce, "true"), ShouldBeNil)
		v, err = a.GetOption(OptCoalesce)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "true")
	})

	Convey("SetOption rejects an unrecognized name", t, func() {
		a, err := New()
		So(err, ShouldBeNil)
		err = a.SetOption("not-a-real-option", "x")
		So(err, ShouldNotBeNil)
		_, ok := err.(*OptionMisuseError)
		So(ok, ShouldBeTrue)
	})

	Convey("SetOption rejects an unrecognized digest name", t, func() {
		a, err := New()
		So(err, ShouldBeNil)
		err = a.SetOption(OptFileCksum, "not-a-digest")
		So(err, ShouldNotBeNil)
	})

	Convey("xar-library-version is read-only", t, func() {
		a, err := New()
		So(err, ShouldBeNil)
		v, err := a.GetOption(OptXARLibraryVersion)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, LibraryVersion)
		So(a.SetOption(OptXARLibraryVersion, "0x2"), ShouldNotBeNil)
	})

	Convey("toc-cksum cannot change once a file has been added (I7)", t, func() {
		a, err := New()
		So(err, ShouldBeNil)
		_, err = a.AddBuffer(nil, "f", []byte("hi"))
		So(err, ShouldBeNil)

		err = a.SetOption(OptTOCCksum, "md5")
		So(err, ShouldNotBeNil)
		_, ok := err.(*OptionMisuseError)
		So(ok, ShouldBeTrue)
	})

	Convey("toc-cksum cannot change once a signature has been reserved (I7)", t, func() {
		a, err := New()
		So(err, ShouldBeNil)
		_, err = a.AddSignature("RSA", 4, func(ctx interface{}, digest []byte, n int64) ([]byte, error) {
			return make([]byte, n), nil
		}, nil)
		So(err, ShouldBeNil)

		err = a.SetOption(OptTOCCksum, "md5")
		So(err, ShouldNotBeNil)
	})

	Convey("toc-cksum can change before anything has been added", t, func() {
		a, err := New()
		So(err, ShouldBeNil)
		So(a.SetOption(OptTOCCksum, "md5"), ShouldBeNil)
		v, err := a.GetOption(OptTOCCksum)
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "md5")
	})
}
