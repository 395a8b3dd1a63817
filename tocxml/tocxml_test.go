// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tocxml

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/mackyle/xar/xardata/toc"
)

func buildSample() *toc.Document {
	d := toc.NewDocument()
	toc.SetProperty(d.Properties, "creation-time", "2024-01-02T03:04:05Z", true)
	cksum := toc.SetProperty(d.Properties, "checksum", "", true)
	cksum.SetAttr("style", "sha1")
	toc.SetProperty(cksum, "offset", "0", true)
	toc.SetProperty(cksum, "size", "20", true)

	f := d.CreateFile(nil, "hello.txt", toc.TypeFile)
	toc.SetProperty(f.Properties, "mode", "0644", true)
	data := toc.SetProperty(f.Properties, "data", "", true)
	toc.SetProperty(data, "offset", "20", true)
	toc.SetProperty(data, "size", "13", true)
	enc := toc.SetProperty(data, "encoding", "", true)
	enc.SetAttr("style", "application/x-gzip")
	archived := toc.SetProperty(data, "archived-checksum", "deadbeef", true)
	archived.SetAttr("style", "sha1")

	ea := &toc.ExtendedAttribute{ID: 1, Properties: &toc.Property{}}
	toc.SetProperty(ea.Properties, "name", "com.example.flag", true)
	toc.SetProperty(ea.Properties, "data", "AAAA", true)
	f.EA = append(f.EA, ea)

	sub := toc.NewSubdocument("example")
	toc.SetProperty(sub.Properties, "note", "hi", true)
	d.Subdocuments = append(d.Subdocuments, sub)

	d.Signatures = append(d.Signatures, &toc.Signature{
		Style:          "RSA",
		Offset:         5,
		DeclaredLength: 128,
		Certificates:   [][]byte{{0x01, 0x02, 0x03}},
	})

	return d
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	Convey("Encode then Decode reconstructs the document", t, func() {
		d := buildSample()
		var buf bytes.Buffer
		So(Encode(d, &buf), ShouldBeNil)

		got, err := Decode(&buf)
		So(err, ShouldBeNil)

		So(len(got.Files), ShouldEqual, 1)
		f := got.Files[0]
		So(f.Name(), ShouldEqual, "hello.txt")
		So(f.Type(), ShouldEqual, toc.TypeFile)

		mode, ok := toc.FindProperty(f.Properties, "mode")
		So(ok, ShouldBeTrue)
		So(mode.Value, ShouldEqual, "0644")

		offset, ok := toc.FindProperty(f.Properties, "data/offset")
		So(ok, ShouldBeTrue)
		So(offset.Value, ShouldEqual, "20")

		encStyle, ok := toc.FindProperty(f.Properties, "data/encoding")
		So(ok, ShouldBeTrue)
		attr, ok := encStyle.Attr("style")
		So(ok, ShouldBeTrue)
		So(attr.Value, ShouldEqual, "application/x-gzip")

		So(len(f.EA), ShouldEqual, 1)
		eaName, ok := toc.FindProperty(f.EA[0].Properties, "name")
		So(ok, ShouldBeTrue)
		So(eaName.Value, ShouldEqual, "com.example.flag")

		cksum, ok := toc.FindProperty(got.Properties, "checksum")
		So(ok, ShouldBeTrue)
		style, ok := cksum.Attr("style")
		So(ok, ShouldBeTrue)
		So(style.Value, ShouldEqual, "sha1")

		So(len(got.Subdocuments), ShouldEqual, 1)
		So(got.Subdocuments[0].Name, ShouldEqual, "example")
		note, ok := toc.FindProperty(got.Subdocuments[0].Properties, "note")
		So(ok, ShouldBeTrue)
		So(note.Value, ShouldEqual, "hi")

		So(len(got.Signatures), ShouldEqual, 1)
		sig := got.Signatures[0]
		So(sig.Style, ShouldEqual, "RSA")
		So(sig.Offset, ShouldEqual, uint64(5))
		So(sig.DeclaredLength, ShouldEqual, int64(128))
		So(sig.Certificates, ShouldResemble, [][]byte{{0x01, 0x02, 0x03}})
	})

	Convey("a name value that doesn't round-trip through latin-1 is base64 escaped", t, func() {
		d := toc.NewDocument()
		d.CreateFile(nil, "日本.txt", toc.TypeFile)

		var buf bytes.Buffer
		So(Encode(d, &buf), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, `enctype="base64"`)

		got, err := Decode(&buf)
		So(err, ShouldBeNil)
		So(got.Files[0].Name(), ShouldEqual, "日本.txt")
	})
}
