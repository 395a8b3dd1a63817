// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHeap(t *testing.T) {
	t.Parallel()

	Convey("Heap", t, func() {
		h, err := NewHeap()
		So(err, ShouldBeNil)
		defer h.Close()

		Convey("reservations are zero-filled and offsets are monotonic", func() {
			off1, err := h.Reserve(4)
			So(err, ShouldBeNil)
			So(off1, ShouldEqual, uint64(0))

			off2, length, err := h.Append([]byte("data"))
			So(err, ShouldBeNil)
			So(off2, ShouldEqual, uint64(4))
			So(length, ShouldEqual, uint64(4))

			So(h.WriteAt(0, []byte{1, 2, 3, 4}), ShouldBeNil)

			got, err := h.ReadAt(0, 8)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []byte{1, 2, 3, 4, 'd', 'a', 't', 'a'})
		})

		Convey("CopyTo streams everything written so far, in order", func() {
			_, _, err := h.Append([]byte("abc"))
			So(err, ShouldBeNil)
			_, _, err = h.Append([]byte("xyz"))
			So(err, ShouldBeNil)

			buf := &bytes.Buffer{}
			So(h.CopyTo(buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "abcxyz")
		})

		Convey("Writer appends sequentially and advances Len", func() {
			w, start, err := h.Writer()
			So(err, ShouldBeNil)
			So(start, ShouldEqual, uint64(0))
			n, err := w.Write([]byte("hello"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 5)
			So(h.Len(), ShouldEqual, uint64(5))
		})
	})
}
