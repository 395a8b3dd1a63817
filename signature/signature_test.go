// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package signature

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/mackyle/xar/xardata"
)

func fixedSigner(out []byte) SignerFunc {
	return func(ctx interface{}, digest []byte, declaredLen int64) ([]byte, error) {
		return out, nil
	}
}

func TestReservation(t *testing.T) {
	t.Parallel()

	Convey("Sign writes the signer's output at the reserved offset", t, func() {
		heap, err := xardata.NewHeap()
		So(err, ShouldBeNil)
		defer heap.Close()

		offset, _, err := heap.Append(make([]byte, 8))
		So(err, ShouldBeNil)

		want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		r := New("RSA", int64(len(want)), offset, fixedSigner(want), nil)
		So(r.Sign(heap, []byte("digest")), ShouldBeNil)

		got, err := heap.ReadAt(offset, uint64(len(want)))
		So(err, ShouldBeNil)
		So(got, ShouldResemble, want)
	})

	Convey("Sign rejects a signer returning the wrong length", t, func() {
		heap, err := xardata.NewHeap()
		So(err, ShouldBeNil)
		defer heap.Close()

		offset, _, err := heap.Append(make([]byte, 8))
		So(err, ShouldBeNil)

		r := New("RSA", 8, offset, fixedSigner([]byte{1, 2, 3}), nil)
		So(r.Sign(heap, []byte("digest")), ShouldNotBeNil)
	})

	Convey("CopySignedData returns the digest, signature bytes, and offset", t, func() {
		heap, err := xardata.NewHeap()
		So(err, ShouldBeNil)
		defer heap.Close()

		offset, _, err := heap.Append(make([]byte, 4))
		So(err, ShouldBeNil)

		sigBytes := []byte{9, 9, 9, 9}
		r := New("RSA", 4, offset, fixedSigner(sigBytes), nil)
		digest := []byte("the-digest")
		So(r.Sign(heap, digest), ShouldBeNil)

		gotDigest, gotSig, gotOffset, err := r.CopySignedData(heap, digest)
		So(err, ShouldBeNil)
		So(gotDigest, ShouldResemble, digest)
		So(bytes.Equal(gotSig, sigBytes), ShouldBeTrue)
		So(gotOffset, ShouldEqual, offset)
	})

	Convey("ToTOC/FromTOC round trips the certificate chain", t, func() {
		r := New("RSA", 10, 0, nil, nil)
		r.AddCertificate([]byte{0xDE, 0xAD})
		node := r.ToTOC()
		back := FromTOC(node)
		So(back.Certificates, ShouldResemble, r.Certificates)
		So(back.Style, ShouldEqual, r.Style)
	})
}
