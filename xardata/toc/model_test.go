// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProperties(t *testing.T) {
	t.Parallel()

	Convey("Properties", t, func() {
		root := &Property{}

		Convey("Attach creates intermediate nodes", func() {
			p, err := AttachProperty(root, "data/offset")
			So(err, ShouldBeNil)
			p.Value = "20"
			p.HasValue = true

			got, ok := FindProperty(root, "data/offset")
			So(ok, ShouldBeTrue)
			So(got.Value, ShouldEqual, "20")
			So(got.Parent().Key, ShouldEqual, "data")
		})

		Convey("Find on a missing path is not an error", func() {
			_, ok := FindProperty(root, "nope/nothing")
			So(ok, ShouldBeFalse)
		})

		Convey("Set with overwrite replaces in place", func() {
			SetProperty(root, "checksum/style", "sha1", true)
			SetProperty(root, "checksum/style", "sha256", true)
			matches := FindAllProperties(root, "checksum/style")
			So(len(matches), ShouldEqual, 1)
			So(matches[0].Value, ShouldEqual, "sha256")
		})

		Convey("Set without overwrite creates duplicates", func() {
			SetProperty(root, "ea", "one", false)
			SetProperty(root, "ea", "two", false)
			matches := FindAllProperties(root, "ea")
			So(len(matches), ShouldEqual, 2)
		})

		Convey("Unset removes the first match", func() {
			SetProperty(root, "mode", "0644", true)
			So(UnsetProperty(root, "mode"), ShouldBeTrue)
			_, ok := FindProperty(root, "mode")
			So(ok, ShouldBeFalse)
		})

		Convey("unknown namespace is rejected", func() {
			_, err := AttachProperty(root, "bogus:thing")
			So(err, ShouldNotBeNil)
		})

		Convey("ea namespace is accepted", func() {
			p, err := AttachProperty(root, "ea:focus")
			So(err, ShouldBeNil)
			So(p.Namespace, ShouldEqual, NamespaceEA)
		})
	})
}

func TestDocumentFiles(t *testing.T) {
	t.Parallel()

	Convey("Document", t, func() {
		d := NewDocument()

		Convey("CreateFile assigns dense monotonic ids", func() {
			a := d.CreateFile(nil, "a", TypeFile)
			b := d.CreateFile(nil, "b", TypeFile)
			So(a.ID, ShouldEqual, uint64(1))
			So(b.ID, ShouldEqual, uint64(2))
		})

		Convey("Lookup resolves nested paths and skips '.'", func() {
			dir := d.CreateFile(nil, "dir", TypeDirectory)
			d.CreateFile(dir, "a", TypeFile)

			got, err := d.Lookup("./dir/a")
			So(err, ShouldBeNil)
			So(got.Name(), ShouldEqual, "a")
		})

		Convey("Lookup rejects ..", func() {
			d.CreateFile(nil, "dir", TypeDirectory)
			_, err := d.Lookup("dir/../a")
			So(err, ShouldNotBeNil)
		})

		Convey("WalkFiles visits in stable depth-first pre-order", func() {
			dir := d.CreateFile(nil, "dir", TypeDirectory)
			d.CreateFile(dir, "a", TypeFile)
			d.CreateFile(dir, "b", TypeFile)
			d.CreateFile(nil, "z", TypeFile)

			var order []string
			err := d.WalkFiles(func(path []string, f *File) error {
				order = append(order, f.Name())
				return nil
			})
			So(err, ShouldBeNil)
			So(order, ShouldResemble, []string{"dir", "a", "b", "z"})
		})

		Convey("ReplicateSubtree copies properties but not ids", func() {
			src := d.CreateFile(nil, "src", TypeFile)
			SetProperty(src.Properties, "mode", "0644", true)

			d2 := NewDocument()
			cp := d2.ReplicateSubtree(src, nil)
			So(cp.ID, ShouldEqual, uint64(1))
			So(cp.Name(), ShouldEqual, "src")
			mode, ok := FindProperty(cp.Properties, "mode")
			So(ok, ShouldBeTrue)
			So(mode.Value, ShouldEqual, "0644")
		})

		Convey("hardlinks validate when the original precedes them", func() {
			orig := d.CreateFile(nil, "a", TypeFile)
			orig.MarkLinkOriginal()
			link := d.CreateFile(nil, "b", TypeHardlink)
			link.SetLinkTarget(orig.ID)

			So(d.Validate(), ShouldBeNil)
		})

		Convey("hardlinks referencing an unseen id fail validation", func() {
			link := d.CreateFile(nil, "b", TypeHardlink)
			link.SetLinkTarget(999)

			So(d.Validate(), ShouldNotBeNil)
		})

		Convey("duplicate sibling names fail validation", func() {
			d.CreateFile(nil, "dup", TypeFile)
			d.CreateFile(nil, "dup", TypeFile)
			So(d.Validate(), ShouldNotBeNil)
		})
	})
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	Convey("ValidateRanges", t, func() {
		Convey("non-overlapping ranges are fine", func() {
			err := ValidateRanges([]DataRange{
				{FileID: 1, Offset: 0, Length: 10},
				{FileID: 2, Offset: 10, Length: 5},
			}, false)
			So(err, ShouldBeNil)
		})

		Convey("overlap without coalesce is rejected", func() {
			err := ValidateRanges([]DataRange{
				{FileID: 1, Offset: 0, Length: 10},
				{FileID: 2, Offset: 5, Length: 5},
			}, false)
			So(err, ShouldNotBeNil)
		})

		Convey("identical ranges are fine when coalesce is allowed", func() {
			err := ValidateRanges([]DataRange{
				{FileID: 1, Offset: 0, Length: 10},
				{FileID: 2, Offset: 0, Length: 10},
			}, true)
			So(err, ShouldBeNil)
		})

		Convey("identical ranges are rejected when coalesce is not allowed", func() {
			err := ValidateRanges([]DataRange{
				{FileID: 1, Offset: 0, Length: 10},
				{FileID: 2, Offset: 0, Length: 10},
			}, false)
			So(err, ShouldNotBeNil)
		})
	})
}
