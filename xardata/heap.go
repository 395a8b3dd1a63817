// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"io"

	"github.com/luci/luci-go/common/errors"
)

// Heap is the temporary byte store used to accumulate payloads while an
// archive is being written (spec §3, "Heap descriptor"). Bytes are only
// ever appended; the offset field (reported by Len) tracks the running
// write position so
// reservations (the TOC digest block, signatures) and file payloads can be
// interleaved in the same monotonically increasing offset space (I4).
type Heap struct {
	backing *ScratchFile
	offset  uint64
}

// NewHeap creates an empty heap backed by a fresh scratch file.
func NewHeap() (*Heap, error) {
	f, err := NewScratchFile("xar-heap-")
	if err != nil {
		return nil, err
	}
	return &Heap{backing: f}, nil
}

// Reserve advances the heap's write cursor by n bytes without writing
// anything, returning the offset the reservation starts at. Used for the
// TOC digest block and signature placeholders, which are filled in later
// (spec §4.9 step 2, §4.11).
func (h *Heap) Reserve(n uint64) (offset uint64, err error) {
	if _, err = h.backing.Seek(int64(h.offset), io.SeekStart); err != nil {
		return 0, errors.Annotate(err).Reason("reserving %(n)d heap bytes").D("n", n).Err()
	}
	if n > 0 {
		if err = WriteFull(h.backing, make([]byte, n)); err != nil {
			return 0, errors.Annotate(err).Reason("zero-filling heap reservation").Err()
		}
	}
	offset = h.offset
	h.offset += n
	return offset, nil
}

// WriteAt fills a previously Reserve'd range with data. len(data) must equal
// the reservation's length.
func (h *Heap) WriteAt(offset uint64, data []byte) error {
	if _, err := h.backing.WriteAt(data, int64(offset)); err != nil {
		return errors.Annotate(err).Reason("writing heap reservation at %(offset)d").
			D("offset", offset).Err()
	}
	return nil
}

// Append writes data at the current end of the heap and returns the byte
// range it occupies.
func (h *Heap) Append(data []byte) (offset uint64, length uint64, err error) {
	if _, err = h.backing.Seek(int64(h.offset), io.SeekStart); err != nil {
		return 0, 0, errors.Annotate(err).Reason("seeking to heap end").Err()
	}
	if err = WriteFull(h.backing, data); err != nil {
		return 0, 0, errors.Annotate(err).Reason("appending %(n)d bytes to heap").
			D("n", len(data)).Err()
	}
	offset = h.offset
	length = uint64(len(data))
	h.offset += length
	return offset, length, nil
}

// Writer returns an io.Writer that appends to the heap starting at the
// current offset, advancing Len() as bytes are written. Used by the add
// pipeline's heap-writer sink so a file's payload can be streamed straight
// through the module chain instead of being buffered in memory first.
func (h *Heap) Writer() (w io.Writer, startOffset uint64, err error) {
	if _, err = h.backing.Seek(int64(h.offset), io.SeekStart); err != nil {
		return nil, 0, errors.Annotate(err).Reason("seeking to heap end").Err()
	}
	return &heapAppendWriter{h: h}, h.offset, nil
}

type heapAppendWriter struct {
	h *Heap
}

func (w *heapAppendWriter) Write(p []byte) (int, error) {
	if err := WriteFull(w.h.backing, p); err != nil {
		return 0, err
	}
	w.h.offset += uint64(len(p))
	return len(p), nil
}

// Len returns the number of bytes appended/reserved so far.
func (h *Heap) Len() uint64 { return h.offset }

// ReadAt reads length bytes starting at offset, for random-access callers
// (e.g. re-reading the TOC digest just written).
func (h *Heap) ReadAt(offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := h.backing.ReadAt(buf, int64(offset)); err != nil {
		return nil, errors.Annotate(err).Reason("reading %(n)d heap bytes at %(offset)d").
			D("n", length).D("offset", offset).Err()
	}
	return buf, nil
}

// CopyTo streams the entire heap, in order, to w. Used at close time to
// append the finished heap after the header and compressed TOC (spec §4.9
// step 9).
func (h *Heap) CopyTo(w io.Writer) error {
	if _, err := h.backing.Seek(0, io.SeekStart); err != nil {
		return errors.Annotate(err).Reason("rewinding heap").Err()
	}
	_, err := io.Copy(w, io.LimitReader(h.backing, int64(h.offset)))
	return err
}

// Close releases the heap's backing scratch file.
func (h *Heap) Close() error {
	return h.backing.Close()
}
