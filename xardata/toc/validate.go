// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"regexp"
	"sort"
	"strings"

	"github.com/luci/luci-go/common/data/stringset"
	"github.com/luci/luci-go/common/errors"
)

// badChars matches characters that may never appear in a single path
// component, ported from the teacher's sardata/toc/toc.go badChars.
var badChars = regexp.MustCompile("[<>:\"/\\|?*\x00-\x1f]")

func checkPathPiece(piece string, allowRel bool) error {
	if piece == "" {
		return errors.New("empty path component")
	}
	if piece == "." {
		return errors.New("'.' path component")
	}
	if idxs := badChars.FindStringIndex(piece); len(idxs) > 0 {
		return errors.Reason("bad char %(char)q in path component").
			D("char", piece[idxs[0]:idxs[1]]).Err()
	}
	if !allowRel && piece == ".." {
		return errors.Reason("relative path segment %(piece)q not allowed").
			D("piece", piece).Err()
	}
	return nil
}

// Validate checks every structural invariant (I1-I4) that can be verified
// from the object model alone — heap-layout checks (I4 offsets) need the
// recorded data/offset and data/length properties and are done separately
// by archive.validateHeapRanges.
func (d *Document) Validate() error {
	if err := validateSiblings(d.Files, d.CaseSafe); err != nil {
		return err
	}
	seen := map[uint64]*File{}
	if err := d.WalkFiles(func(_ []string, f *File) error {
		if err := f.Validate(); err != nil {
			return errors.Annotate(err).Reason("in file %(name)q").D("name", f.Name()).Err()
		}
		if other, dup := seen[f.ID]; dup {
			return errors.Reason("duplicate file id %(id)d (%(a)q and %(b)q)").
				D("id", f.ID).D("a", other.Name()).D("b", f.Name()).Err()
		}
		seen[f.ID] = f
		if err := validateSiblings(f.children, d.CaseSafe); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	return d.validateHardlinkClosure()
}

func validateSiblings(files []*File, caseSafe bool) error {
	names := stringset.New(len(files))
	var lower stringset.Set
	if caseSafe {
		lower = stringset.New(len(files))
	}
	for _, f := range files {
		name := f.Name()
		if err := checkPathPiece(name, false); err != nil {
			return errors.Annotate(err).Reason("file name %(name)q").D("name", name).Err()
		}
		if !names.Add(name) {
			return errors.Reason("duplicate entry %(name)q").D("name", name).Err()
		}
		if caseSafe && !lower.Add(strings.ToLower(name)) {
			return errors.Reason("case-sensitive collision on %(name)q").D("name", name).Err()
		}
	}
	return nil
}

// Validate checks the file-local invariants of I2: a name and a
// recognized type are both present.
func (f *File) Validate() error {
	if f.Name() == "" {
		return errors.New("missing name property")
	}
	t := f.Type()
	if !ValidFileType(t) {
		return errors.Reason("unrecognized type %(type)q").D("type", string(t)).Err()
	}
	if t == TypeHardlink {
		if _, ok := f.LinkTarget(); !ok {
			return errors.New("hardlink entry missing link target")
		}
	}
	return nil
}

// validateHardlinkClosure checks P3: every hardlink's referenced id exists,
// names a link=original entry, and is reachable earlier in document order.
func (d *Document) validateHardlinkClosure() error {
	originals := map[uint64]bool{}
	return d.WalkFiles(func(_ []string, f *File) error {
		if f.Type() == TypeHardlink {
			target, _ := f.LinkTarget()
			if !originals[target] {
				return errors.Reason("hardlink %(name)q references id %(id)d not seen as an original before it").
					D("name", f.Name()).D("id", target).Err()
			}
			return nil
		}
		if f.LinkOriginal() {
			originals[f.ID] = true
		}
		return nil
	})
}

// DataRange is a file payload's heap byte range, used by ValidateRanges to
// check I4 (non-overlapping, non-decreasing heap offsets) independent of
// any particular archive implementation.
type DataRange struct {
	FileID uint64
	Offset uint64
	Length uint64
}

// ValidateRanges checks I4: after sorting the ranges by offset, no two may
// overlap unless they are byte-identical (which is only legitimate when
// coalesce produced the duplicate - coalesceAllowed must be true in that
// case, per spec §9's open question about duplicate offsets without
// coalesce). The order the ranges are given in is not checked.
func ValidateRanges(ranges []DataRange, coalesceAllowed bool) error {
	sorted := append([]DataRange{}, ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Offset == prev.Offset && cur.Length == prev.Length {
			if !coalesceAllowed {
				return errors.Reason("files %(a)d and %(b)d share heap offset %(off)d without coalesce").
					D("a", prev.FileID).D("b", cur.FileID).D("off", cur.Offset).Err()
			}
			continue
		}
		if cur.Offset < prev.Offset+prev.Length {
			return errors.Reason("files %(a)d and %(b)d have overlapping heap ranges").
				D("a", prev.FileID).D("b", cur.FileID).Err()
		}
	}
	return nil
}
