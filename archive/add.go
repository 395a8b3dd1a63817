// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/pipeline"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

// coalesceEntry remembers one previously written payload's heap range and
// digests, keyed by its extracted-checksum hex, so a later identical
// payload can point at it instead of being written again (spec §4.6
// "coalesce").
type coalesceEntry struct {
	offset uint64
	result pipeline.Result
	style  xardata.Codec
}

// propAllowed applies the prop-include/prop-exclude filters to an optional
// property name (spec §6). The mandatory name/type/data/link properties are
// never filtered; this only gates cosmetic metadata (mode, ownership,
// timestamps).
func (a *Archive) propAllowed(key string) bool {
	for _, excl := range a.opts.propExclude {
		if excl == key {
			return false
		}
	}
	if len(a.opts.propInclude) == 0 {
		return true
	}
	for _, incl := range a.opts.propInclude {
		if incl == key {
			return true
		}
	}
	return false
}

func (a *Archive) setCommonProperties(f *toc.File, mode os.FileMode, mtime time.Time) {
	if a.propAllowed("mode") {
		toc.SetProperty(f.Properties, "mode", fmt.Sprintf("%04o", mode.Perm()), true)
	}
	if a.propAllowed("mtime") {
		toc.SetProperty(f.Properties, "mtime", mtime.UTC().Format(time.RFC3339), true)
	}
}

// setOwnerProperties records fi's uid/gid, and the symbolic names they
// resolve to when available, so extraction can honor either the
// `ownership=numeric` or `ownership=symbolic` option (spec §6).
func (a *Archive) setOwnerProperties(f *toc.File, fi os.FileInfo) {
	uid, gid, ok := ownerOf(fi)
	if !ok {
		return
	}
	if a.propAllowed("uid") {
		toc.SetProperty(f.Properties, "uid", strconv.FormatUint(uint64(uid), 10), true)
	}
	if a.propAllowed("gid") {
		toc.SetProperty(f.Properties, "gid", strconv.FormatUint(uint64(gid), 10), true)
	}
	userName, groupName := userGroupNames(uid, gid)
	if userName != "" && a.propAllowed("user") {
		toc.SetProperty(f.Properties, "user", userName, true)
	}
	if groupName != "" && a.propAllowed("group") {
		toc.SetProperty(f.Properties, "group", groupName, true)
	}
}

func fmtUint(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

// AddDirectory creates a directory entry named name under parent (nil for
// archive root), carrying mode/mtime from fi.
func (a *Archive) AddDirectory(parent *toc.File, name string, fi os.FileInfo) (*toc.File, error) {
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	f := a.doc.CreateFile(parent, name, toc.TypeDirectory)
	a.setCommonProperties(f, fi.Mode(), fi.ModTime())
	a.setOwnerProperties(f, fi)
	return f, nil
}

// AddSymlink creates a symlink entry named name under parent, pointing at
// target.
func (a *Archive) AddSymlink(parent *toc.File, name, target string) (*toc.File, error) {
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	f := a.doc.CreateFile(parent, name, toc.TypeSymlink)
	toc.SetProperty(f.Properties, "link", target, true)
	return f, nil
}

// AddDevice creates a character- or block-special entry named name under
// parent with the given device major/minor numbers.
func (a *Archive) AddDevice(parent *toc.File, name string, t toc.FileType, major, minor uint32) (*toc.File, error) {
	if t != toc.TypeCharDevice && t != toc.TypeBlockDevice {
		return nil, errors.Reason("AddDevice: not a device type: %(type)q").D("type", string(t)).Err()
	}
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	f := a.doc.CreateFile(parent, name, t)
	toc.SetProperty(f.Properties, "device/major", strconv.FormatUint(uint64(major), 10), true)
	toc.SetProperty(f.Properties, "device/minor", strconv.FormatUint(uint64(minor), 10), true)
	return f, nil
}

// AddFIFO creates a named pipe entry; AddSocket creates a socket entry.
// Neither carries a payload (spec §4.10 "fifo/socket: create; ignore
// payload").
func (a *Archive) AddFIFO(parent *toc.File, name string, fi os.FileInfo) (*toc.File, error) {
	return a.addNoPayload(parent, name, toc.TypeFIFO, fi)
}

func (a *Archive) AddSocket(parent *toc.File, name string, fi os.FileInfo) (*toc.File, error) {
	return a.addNoPayload(parent, name, toc.TypeSocket, fi)
}

func (a *Archive) addNoPayload(parent *toc.File, name string, t toc.FileType, fi os.FileInfo) (*toc.File, error) {
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	f := a.doc.CreateFile(parent, name, t)
	a.setCommonProperties(f, fi.Mode(), fi.ModTime())
	a.setOwnerProperties(f, fi)
	return f, nil
}

// AddFile adds the regular file at fsPath named name under parent. If
// linksame is enabled and fsPath shares a device+inode with a previously
// added file, the new entry is emitted as a hardlink instead of carrying
// its own payload (spec §4.6).
func (a *Archive) AddFile(parent *toc.File, name, fsPath string) (*toc.File, error) {
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	fi, err := os.Lstat(fsPath)
	if err != nil {
		return nil, errors.Annotate(err).Reason("stat %(path)q").D("path", fsPath).Err()
	}

	if a.opts.linksame {
		if key, ok := inodeKeyOf(fi); ok {
			if original, seen := a.byInode[key]; seen {
				f := a.doc.CreateFile(parent, name, toc.TypeHardlink)
				if !original.LinkOriginal() {
					original.MarkLinkOriginal()
				}
				f.SetLinkTarget(original.ID)
				return f, nil
			}
			f := a.doc.CreateFile(parent, name, toc.TypeFile)
			a.setCommonProperties(f, fi.Mode(), fi.ModTime())
			a.setOwnerProperties(f, fi)
			a.byInode[key] = f
			return f, a.addFilePayload(f, fsPath)
		}
	}

	f := a.doc.CreateFile(parent, name, toc.TypeFile)
	a.setCommonProperties(f, fi.Mode(), fi.ModTime())
	a.setOwnerProperties(f, fi)
	return f, a.addFilePayload(f, fsPath)
}

// AddBuffer adds an in-memory payload as a regular file entry, for callers
// synthesizing content rather than reading it off disk.
func (a *Archive) AddBuffer(parent *toc.File, name string, data []byte) (*toc.File, error) {
	if a.mode != ModeWrite {
		return nil, errors.New("archive is not open for writing")
	}
	f := a.doc.CreateFile(parent, name, toc.TypeFile)
	return f, a.writePayload(f, data)
}

func (a *Archive) addFilePayload(f *toc.File, fsPath string) error {
	if a.opts.coalesce {
		r, err := pipeline.FileSource(fsPath)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return errors.Annotate(err).Reason("reading %(path)q for coalescing").D("path", fsPath).Err()
		}
		return a.writePayload(f, data)
	}
	src, err := pipeline.FileSource(fsPath)
	if err != nil {
		return err
	}
	defer src.Close()
	return a.streamPayload(f, src)
}

// writePayload hashes data up front so it can be coalesced against a
// previous identical payload before any heap bytes are committed.
func (a *Archive) writePayload(f *toc.File, data []byte) error {
	if a.opts.coalesce && a.opts.fileCksum != xardata.DigestNone {
		digest, err := xardata.Sum(a.opts.fileCksum, data)
		if err != nil {
			return err
		}
		if entry, ok := a.byChecksum[digest.Hex()]; ok {
			a.recordDataProperty(f, entry.offset, entry.result, entry.style)
			return nil
		}
		offset, result, err := a.writeThroughPipeline(bytes.NewReader(data))
		if err != nil {
			return errors.Annotate(err).Reason("writing payload for %(name)q").D("name", f.Name()).Err()
		}
		a.recordDataProperty(f, offset, *result, a.opts.compression)
		a.byChecksum[digest.Hex()] = coalesceEntry{offset: offset, result: *result, style: a.opts.compression}
		return nil
	}
	return a.streamPayload(f, bytes.NewReader(data))
}

// streamPayload runs r through the add-side module chain (spec §4.6) and
// records the resulting heap range and digests on f's data subtree.
func (a *Archive) streamPayload(f *toc.File, r io.Reader) error {
	offset, result, err := a.writeThroughPipeline(r)
	if err != nil {
		return errors.Annotate(err).Reason("writing payload for %(name)q").D("name", f.Name()).Err()
	}
	a.recordDataProperty(f, offset, *result, a.opts.compression)
	return nil
}

// writeThroughPipeline drives r through the add-side module chain straight
// into the heap, returning the heap offset the payload starts at.
func (a *Archive) writeThroughPipeline(r io.Reader) (uint64, *pipeline.Result, error) {
	w, startOffset, err := a.heap.Writer()
	if err != nil {
		return 0, nil, err
	}
	enc, result, err := pipeline.NewEncodePipeline(w, a.opts.compression, a.opts.compressionArg,
		a.opts.fileCksum, a.opts.fileCksum)
	if err != nil {
		return 0, nil, err
	}
	if _, err := io.Copy(enc, r); err != nil {
		return 0, nil, err
	}
	if err := enc.Close(); err != nil {
		return 0, nil, err
	}
	return startOffset, result, nil
}

// recordDataProperty records a file's heap range and digests using the
// wire meaning spec §6 shows: `size` is the file's original (extracted)
// byte count, `length` is the archived (on-disk, heap) byte count that
// Offset/Length describe a reader has to span.
func (a *Archive) recordDataProperty(f *toc.File, offset uint64, result pipeline.Result, style xardata.Codec) {
	toc.SetProperty(f.Properties, "data/offset", strconv.FormatUint(offset, 10), true)
	toc.SetProperty(f.Properties, "data/size", strconv.FormatUint(result.ExtractedSize, 10), true)
	toc.SetProperty(f.Properties, "data/length", strconv.FormatUint(result.ArchivedSize, 10), true)
	toc.SetProperty(f.Properties, "data/encoding", "", true).SetAttr("style", string(style))
	toc.SetProperty(f.Properties, "data/archived-checksum", result.ArchivedChecksum.Hex(), true).
		SetAttr("style", string(result.ArchivedChecksum.Name))
	toc.SetProperty(f.Properties, "data/extracted-checksum", result.ExtractedChecksum.Hex(), true).
		SetAttr("style", string(result.ExtractedChecksum.Name))
}
