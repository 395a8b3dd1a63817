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

	. "github.com/smartystreets/goconvey/convey"
	"github.com/mackyle/xar/xardata/toc"
)

// craftedArchive builds a read-mode Archive around a hand-assembled
// Document, bypassing add/close entirely, to exercise a TOC an attacker
// controls directly (spec §4.10 scenario: a name that attempts to escape
// the destination root).
func craftedArchive(doc *toc.Document) *Archive {
	return &Archive{
		mode:   ModeRead,
		opts:   defaultOptions(),
		doc:    doc,
		source: bytes.NewReader(nil),
	}
}

func TestExtractPathTraversal(t *testing.T) {
	t.Parallel()

	Convey("a file name that escapes the destination root is rejected, not followed (S6)", t, func() {
		doc := toc.NewDocument()
		doc.CreateFile(nil, "../evil", toc.TypeDirectory)
		a := craftedArchive(doc)

		dest := t.TempDir()
		err := a.Extract(context.Background(), dest)
		So(err, ShouldNotBeNil)
	})

	Convey("an ordinary relative name extracts normally", t, func() {
		doc := toc.NewDocument()
		doc.CreateFile(nil, "fine", toc.TypeDirectory)
		a := craftedArchive(doc)

		dest := t.TempDir()
		So(a.Extract(context.Background(), dest), ShouldBeNil)
	})
}

func TestExtractHardlink(t *testing.T) {
	t.Parallel()

	Convey("a hardlink whose original appears later in document order is still resolved (spec §4.10, S4)", t, func() {
		doc := toc.NewDocument()
		original := doc.CreateFile(nil, "original.txt", toc.TypeFile)
		original.MarkLinkOriginal()
		link := doc.CreateFile(nil, "link.txt", toc.TypeHardlink)
		link.SetLinkTarget(original.ID)
		// Put the hardlink ahead of its original in document order, even
		// though the original has the lower file id: WalkFiles must not be
		// able to assume document order matches id order.
		doc.Files[0], doc.Files[1] = doc.Files[1], doc.Files[0]
		So(doc.Files[0].Type(), ShouldEqual, toc.TypeHardlink)

		a := craftedArchive(doc)
		dest := t.TempDir()
		So(a.Extract(context.Background(), dest), ShouldBeNil)

		origFI, err := os.Stat(filepath.Join(dest, "original.txt"))
		So(err, ShouldBeNil)
		linkFI, err := os.Stat(filepath.Join(dest, "link.txt"))
		So(err, ShouldBeNil)
		So(os.SameFile(origFI, linkFI), ShouldBeTrue)
	})

	Convey("a self-referential hardlink is rejected rather than looping forever", t, func() {
		doc := toc.NewDocument()
		link := doc.CreateFile(nil, "link.txt", toc.TypeHardlink)
		link.SetLinkTarget(link.ID)
		a := craftedArchive(doc)

		dest := t.TempDir()
		So(a.Extract(context.Background(), dest), ShouldNotBeNil)
	})
}
