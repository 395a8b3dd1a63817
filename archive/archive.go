// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"io"

	"github.com/mackyle/xar/signature"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

// Mode fixes whether an Archive handle was opened for reading or writing;
// it never changes after New/Open (spec §3 "mode: Read or Write").
type Mode int

const (
	ModeWrite Mode = iota
	ModeRead
)

// inodeKey identifies a file by device+inode for hardlink detection during
// add (spec §3 "by-inode" index).
type inodeKey struct {
	dev, ino uint64
}

// Archive is the in-memory root of a xar archive handle (spec §3
// "Archive"). Indices are ephemeral: built as files are added (write
// mode) or on first use during extraction (read mode), and dropped when
// the handle is closed.
type Archive struct {
	mode Mode
	opts options
	doc  *toc.Document

	// write-mode state
	heap         *xardata.Heap
	reservations []*signature.Reservation
	byInode      map[inodeKey]*toc.File
	byChecksum   map[string]coalesceEntry

	// read-mode state
	source    io.ReadSeeker
	heapStart int64
	byID      map[uint64]*toc.File

	closed bool
}

// Mode reports whether a was opened for reading or writing.
func (a *Archive) Mode() Mode { return a.mode }

// Document exposes the underlying TOC object model, for callers that need
// to walk or inspect the file forest directly (e.g. to print a listing).
func (a *Archive) Document() *toc.Document { return a.doc }

// indexByID lazily builds the by-id lookup used to resolve hardlink targets
// during extraction, and returns the cached map on later calls.
func (a *Archive) indexByID() map[uint64]*toc.File {
	if a.byID != nil {
		return a.byID
	}
	a.byID = map[uint64]*toc.File{}
	a.doc.WalkFiles(func(_ []string, f *toc.File) error {
		a.byID[f.ID] = f
		return nil
	})
	return a.byID
}
