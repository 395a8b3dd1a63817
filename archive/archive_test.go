// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

func buildAndClose(t *testing.T, build func(a *Archive)) []byte {
	t.Helper()
	a, err := New()
	So(err, ShouldBeNil)
	build(a)
	var out bytes.Buffer
	So(a.Close(&out), ShouldBeNil)
	return out.Bytes()
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	Convey("a directory, a file, and a symlink survive a full add/close/open/extract cycle", t, func() {
		archiveBytes := buildAndClose(t, func(a *Archive) {
			dir, err := a.AddDirectory(nil, "dir", fakeDirInfo{})
			So(err, ShouldBeNil)
			_, err = a.AddBuffer(dir, "hello.txt", []byte("hello, xar"))
			So(err, ShouldBeNil)
			_, err = a.AddSymlink(dir, "link", "hello.txt")
			So(err, ShouldBeNil)
		})

		a, err := Open(bytes.NewReader(archiveBytes), nil)
		So(err, ShouldBeNil)
		So(a.Mode(), ShouldEqual, ModeRead)
		So(len(a.Document().Files), ShouldEqual, 1)

		dest := t.TempDir()
		So(a.Extract(context.Background(), dest), ShouldBeNil)

		got, err := os.ReadFile(filepath.Join(dest, "dir", "hello.txt"))
		So(err, ShouldBeNil)
		So(string(got), ShouldEqual, "hello, xar")

		linkTarget, err := os.Readlink(filepath.Join(dest, "dir", "link"))
		So(err, ShouldBeNil)
		So(linkTarget, ShouldEqual, "hello.txt")
	})

	Convey("ExtractToStream pulls a file's payload directly without touching the filesystem", t, func() {
		archiveBytes := buildAndClose(t, func(a *Archive) {
			_, err := a.AddBuffer(nil, "hello.txt", []byte("streamed"))
			So(err, ShouldBeNil)
		})

		a, err := Open(bytes.NewReader(archiveBytes), nil)
		So(err, ShouldBeNil)
		f := a.Document().Files[0]

		r, err := a.ExtractToStream(f)
		So(err, ShouldBeNil)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(r)
		So(err, ShouldBeNil)
		So(r.Close(), ShouldBeNil)
		So(buf.String(), ShouldEqual, "streamed")
	})

	Convey("identical payloads coalesce into the same heap range", t, func() {
		var offsets []string
		buildAndClose(t, func(a *Archive) {
			So(a.SetOption(OptCoalesce, "true"), ShouldBeNil)
			f1, err := a.AddBuffer(nil, "a.txt", []byte("same bytes"))
			So(err, ShouldBeNil)
			f2, err := a.AddBuffer(nil, "b.txt", []byte("same bytes"))
			So(err, ShouldBeNil)
			for _, f := range []*toc.File{f1, f2} {
				p, ok := toc.FindProperty(f.Properties, "data/offset")
				So(ok, ShouldBeTrue)
				offsets = append(offsets, p.Value)
			}
		})
		So(offsets[0], ShouldEqual, offsets[1])
	})

	Convey("a tampered TOC digest is detected on open (S5)", t, func() {
		archiveBytes := buildAndClose(t, func(a *Archive) {
			_, err := a.AddBuffer(nil, "hello.txt", []byte("hello, xar"))
			So(err, ShouldBeNil)
		})
		// The stored TOC digest opens the heap, right after the header and
		// the compressed TOC; flip its first byte.
		header, err := xardata.ReadHeader(bytes.NewReader(archiveBytes))
		So(err, ShouldBeNil)
		tampered := append([]byte{}, archiveBytes...)
		tampered[int(header.Size)+int(header.TOCLengthCompressed)] ^= 0xff

		_, err = Open(bytes.NewReader(tampered), nil)
		So(err, ShouldNotBeNil)
		_, ok := err.(*ChecksumMismatchError)
		So(ok, ShouldBeTrue)
	})
}

type fakeDirInfo struct{}

func (fakeDirInfo) Name() string      { return "dir" }
func (fakeDirInfo) Size() int64       { return 0 }
func (fakeDirInfo) Mode() os.FileMode { return os.ModeDir | 0o755 }
func (fakeDirInfo) ModTime() time.Time { return time.Time{} }
func (fakeDirInfo) IsDir() bool       { return true }
func (fakeDirInfo) Sys() interface{}  { return nil }
