// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pipeline implements the ordered module chain spec §4.6 describes:
// on add, source -> extracted-size counter -> extracted-checksum ->
// compression encode -> archived-checksum -> heap writer; on extract, heap
// reader -> archived-checksum verify -> compression decode ->
// extracted-checksum verify -> sink.
//
// Each stage is an ordinary io.Writer/io.Reader wrapper, composed the way
// the teacher's sardata/checksum.go and sardata/block.go compose
// BlockWriter/ChecksumScheme.Writer: innermost stage nearest the caller,
// outermost nearest the underlying file or heap.
package pipeline

import "github.com/mackyle/xar/xardata"

// Result carries the measurements a completed add-side pipeline run
// produced: the extracted (decompressed) size and checksum the source
// bytes hashed to, and the archived (as-stored) size and checksum the heap
// bytes hashed to (spec §4.6, §3 "Heap byte range").
type Result struct {
	ExtractedSize     uint64
	ExtractedChecksum xardata.Digest
	ArchivedSize      uint64
	ArchivedChecksum  xardata.Digest
}
