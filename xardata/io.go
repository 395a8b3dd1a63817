// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package xardata

import (
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"

	"github.com/luci/luci-go/common/errors"
)

// writeCloseHook and readCloseHook let a stage graft extra work onto Close
// without having to define a whole new type. Lifted from the teacher's
// sardata/iogoodies.go.
type writeCloseHook struct {
	io.Writer
	clsFn func() error
}

func (c writeCloseHook) Close() error {
	if c.clsFn != nil {
		return c.clsFn()
	}
	return nil
}

type readCloseHook struct {
	io.Reader
	clsFn func() error
}

func (c readCloseHook) Close() error {
	if c.clsFn != nil {
		return c.clsFn()
	}
	return nil
}

// NopWriteCloser wraps w in a WriteCloser whose Close is a no-op.
func NopWriteCloser(w io.Writer) io.WriteCloser { return writeCloseHook{w, nil} }

// NopReadCloser wraps r in a ReadCloser whose Close is a no-op.
func NopReadCloser(r io.Reader) io.ReadCloser { return readCloseHook{r, nil} }

// WriteCloserWithClose wraps w in a WriteCloser that runs fn on Close
// instead of closing w itself. Used by pipeline stages that graft a
// finalization step (flushing a compressor, recording a digest) onto a
// writer they don't own the lifetime of.
func WriteCloserWithClose(w io.Writer, fn func() error) io.WriteCloser {
	return writeCloseHook{w, fn}
}

// ReadCloserWithClose wraps r in a ReadCloser that runs fn on Close instead
// of closing r itself.
func ReadCloserWithClose(r io.Reader, fn func() error) io.ReadCloser {
	return readCloseHook{r, fn}
}

// ReadFull reads exactly len(buf) bytes from r, looping over short reads the
// way pipes and sockets produce them. It is a thin, explicitly-named wrapper
// over io.ReadFull so call sites read as intentional full-reads rather than
// bare single Read calls.
func ReadFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

// WriteFull writes all of buf to w, looping over short writes.
func WriteFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("write made no progress")
		}
		buf = buf[n:]
	}
	return nil
}

// DiscardForward consumes and discards n bytes from r. Used to emulate a
// forward seek on a non-seekable reader (a pipe): per spec §4.1, a seek
// forward past the next logical boundary is satisfied by reading and
// dropping the intervening bytes.
func DiscardForward(r io.Reader, n int64) error {
	if n < 0 {
		return errors.Reason("cannot discard backward (%(n)d bytes)").D("n", n).Err()
	}
	_, err := io.Copy(ioutil.Discard, io.LimitReader(r, n))
	return err
}

// PutUint16BE, PutUint32BE, and PutUint64BE append the big-endian encoding of
// v to buf and return the extended slice.
func PutUint16BE(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func PutUint32BE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func PutUint64BE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// ReadUint16BE, ReadUint32BE, and ReadUint64BE read a big-endian integer from
// r.
func ReadUint16BE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func ReadUint32BE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func ReadUint64BE(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// ScratchFile is a temporary file that unlinks itself when Close is called,
// regardless of whether the caller read or wrote it. Archive creation uses
// one of these, for the payload heap, scoped to the archive's lifetime; the
// serialized and compressed TOC are built in memory, not in scratch files.
type ScratchFile struct {
	*os.File
}

// NewScratchFile creates a new scratch file in the default temp directory.
func NewScratchFile(prefix string) (*ScratchFile, error) {
	f, err := ioutil.TempFile("", prefix)
	if err != nil {
		return nil, errors.Annotate(err).Reason("creating scratch file %(prefix)q").
			D("prefix", prefix).Err()
	}
	return &ScratchFile{f}, nil
}

// Close closes and unlinks the scratch file. It is safe to call multiple
// times.
func (s *ScratchFile) Close() error {
	name := s.File.Name()
	closeErr := s.File.Close()
	removeErr := os.Remove(name)
	if closeErr != nil {
		return closeErr
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return removeErr
	}
	return nil
}
