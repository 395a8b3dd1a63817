// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"io"
	"strconv"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/pipeline"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

// ExtractToStream opens f's payload as a pull-based io.ReadCloser (spec
// §4.7): the caller drives it with ordinary Read calls, each one a
// "step"; io.EOF is the End status, a non-EOF error is Err. Initialization
// fails only if f has a data subtree that is malformed; a file with no
// data/offset at all (directories, most special files) yields an
// already-empty, already-closed reader rather than an error, matching the
// "files of type other than file with no payload return End immediately"
// rule.
func (a *Archive) ExtractToStream(f *toc.File) (io.ReadCloser, error) {
	if a.mode != ModeRead {
		return nil, errors.New("archive is not open for reading")
	}
	offsetProp, ok := toc.FindProperty(f.Properties, "data/offset")
	if !ok {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	offset, err := strconv.ParseUint(offsetProp.Value, 10, 64)
	if err != nil {
		return nil, errors.Annotate(err).Reason("parsing data/offset for %(name)q").D("name", f.Name()).Err()
	}
	// `length` is the archived (on-disk, heap) byte count spec §6 uses to
	// size the heap range; `size` is the extracted/original byte count.
	lengthProp, ok := toc.FindProperty(f.Properties, "data/length")
	if !ok {
		return nil, errors.Reason("file %(name)q has data/offset but no data/length").D("name", f.Name()).Err()
	}
	archivedSize, err := strconv.ParseUint(lengthProp.Value, 10, 64)
	if err != nil {
		return nil, errors.Annotate(err).Reason("parsing data/length for %(name)q").D("name", f.Name()).Err()
	}

	style := xardata.CodecNone
	if encProp, ok := toc.FindProperty(f.Properties, "data/encoding"); ok {
		if styleAttr, ok := encProp.Attr("style"); ok {
			style = xardata.Codec(styleAttr.Value)
		}
	}

	archivedDigest, err := readDigestProperty(f, "data/archived-checksum")
	if err != nil {
		return nil, errors.Annotate(err).Reason("file %(name)q").D("name", f.Name()).Err()
	}
	extractedDigest, err := readDigestProperty(f, "data/extracted-checksum")
	if err != nil {
		return nil, errors.Annotate(err).Reason("file %(name)q").D("name", f.Name()).Err()
	}

	if _, err := a.source.Seek(a.heapStart+int64(offset), io.SeekStart); err != nil {
		return nil, errors.Annotate(err).Reason("seeking to payload for %(name)q").D("name", f.Name()).Err()
	}
	heapRange := io.LimitReader(a.source, int64(archivedSize))

	dec, err := pipeline.NewDecodePipeline(heapRange, int64(archivedSize), style, archivedDigest, extractedDigest)
	if err != nil {
		return nil, errors.Annotate(err).Reason("opening decode pipeline for %(name)q").D("name", f.Name()).Err()
	}
	return dec, nil
}

func readDigestProperty(f *toc.File, path string) (xardata.Digest, error) {
	p, ok := toc.FindProperty(f.Properties, path)
	if !ok || !p.HasValue {
		return xardata.Digest{Name: xardata.DigestNone}, nil
	}
	styleAttr, _ := p.Attr("style")
	return xardata.DigestFromHex(xardata.DigestName(styleAttr.Value), p.Value)
}
