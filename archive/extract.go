// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/logging"
	"github.com/mackyle/xar/pipeline"
	"github.com/mackyle/xar/xardata/toc"
)

// ExtractState is one file's position in the extraction state machine
// (spec §4.10): Pending -> DecodingHeader -> StreamingPayload ->
// ApplyingMetadata -> Done | Failed. A checksum mismatch at any
// non-terminal state moves straight to Failed.
type ExtractState int

const (
	StatePending ExtractState = iota
	StateDecodingHeader
	StateStreamingPayload
	StateApplyingMetadata
	StateDone
	StateFailed
)

// Extract walks the archive's file forest in document order and recreates
// every entry under destRoot (spec §4.10). A per-file failure is reported
// through the error handler and does not stop extraction of siblings
// (P6/§7); ctx cancellation is checked between files.
func (a *Archive) Extract(ctx context.Context, destRoot string) error {
	if a.mode != ModeRead {
		return errors.New("archive is not open for reading")
	}
	destRoot, err := filepath.Abs(destRoot)
	if err != nil {
		return errors.Annotate(err).Reason("resolving destination root").Err()
	}
	if err := os.MkdirAll(destRoot, 0o777); err != nil {
		return errors.Annotate(err).Reason("creating destination root").Err()
	}

	extractedPath := map[uint64]string{}
	resolving := map[uint64]bool{}
	cancelled := false
	anyFailed := false

	err = a.doc.WalkFiles(func(pathSegs []string, f *toc.File) error {
		if cancelled {
			return context.Canceled
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, already := extractedPath[f.ID]; already {
			// Pulled in early as a hardlink's original (spec §4.10).
			return nil
		}

		state := StatePending
		target, ok := a.extractionTarget(destRoot, pathSegs)
		if !ok {
			anyFailed = true
			if a.report(SeverityFatal, ClassArchiveExtraction, ErrorContext{
				File: f, Msg: "path traversal", Err: &PathTraversalError{Name: f.Name()},
			}) {
				cancelled = true
				return context.Canceled
			}
			return nil
		}

		if err := a.extractOne(destRoot, f, target, extractedPath, resolving, &state); err != nil {
			if err == errCancelledByHandler {
				// The entry itself extracted fine; a warning handler along the
				// way asked to cancel the rest of the operation.
				extractedPath[f.ID] = target
				cancelled = true
				return context.Canceled
			}
			anyFailed = true
			if a.report(SeverityFatal, ClassArchiveExtraction, ErrorContext{File: f, Msg: "extracting", Err: err}) {
				cancelled = true
				return context.Canceled
			}
			logging.Errorf(ctx, "extracting %q: %v", f.Name(), err)
			return nil
		}
		extractedPath[f.ID] = target
		return nil
	})
	if err != nil && err != context.Canceled {
		return err
	}
	if cancelled {
		return errors.New("extraction cancelled by error handler")
	}
	if anyFailed {
		return errors.New("one or more files failed to extract (see error handler/log)")
	}
	return nil
}

// pathSegsFor reconstructs f's slash-joined path segments by walking its
// parent chain, for resolving a hardlink target that WalkFiles has not
// reached yet (spec §4.10 "extract the original first, then link").
func pathSegsFor(f *toc.File) []string {
	var segs []string
	for cur := f; cur != nil; cur = cur.Parent() {
		segs = append([]string{cur.Name()}, segs...)
	}
	return segs
}

// extractionTarget computes the destination path for a file after
// strip-components stripping, rejecting any result that would land outside
// destRoot (spec §4.10, P5).
func (a *Archive) extractionTarget(destRoot string, pathSegs []string) (string, bool) {
	segs := pathSegs
	if a.opts.stripComponents > 0 {
		if a.opts.stripComponents >= len(segs) {
			return "", false
		}
		segs = segs[a.opts.stripComponents:]
	}
	rel := filepath.Join(segs...)
	if rel == "" {
		return "", false
	}
	target := filepath.Join(destRoot, rel)
	cleanRoot := filepath.Clean(destRoot) + string(filepath.Separator)
	if !strings.HasPrefix(target+string(filepath.Separator), cleanRoot) {
		return "", false
	}
	return target, true
}

func (a *Archive) extractOne(destRoot string, f *toc.File, target string, extractedPath map[uint64]string, resolving map[uint64]bool, state *ExtractState) error {
	*state = StateDecodingHeader
	switch f.Type() {
	case toc.TypeDirectory:
		if err := os.MkdirAll(target, 0o777); err != nil {
			return errors.Annotate(err).Reason("creating directory").Err()
		}
		*state = StateStreamingPayload
		*state = StateApplyingMetadata
		if a.applyCommonMetadata(f, target) {
			*state = StateDone
			return errCancelledByHandler
		}
		*state = StateDone
		return nil

	case toc.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
			return errors.Annotate(err).Reason("creating parent directory").Err()
		}
		linkProp, ok := toc.FindProperty(f.Properties, "link")
		if !ok {
			return errors.New("symlink entry missing link property")
		}
		if err := os.Symlink(linkProp.Value, target); err != nil {
			return errors.Annotate(err).Reason("creating symlink").Err()
		}
		*state = StateDone
		return nil

	case toc.TypeHardlink:
		targetID, ok := f.LinkTarget()
		if !ok {
			return errors.New("hardlink entry missing link target")
		}
		originalPath, ok := extractedPath[targetID]
		originalCancelled := false
		if !ok {
			var err error
			originalPath, err = a.extractOriginalByID(destRoot, targetID, extractedPath, resolving)
			if err != nil && err != errCancelledByHandler {
				return err
			}
			originalCancelled = err == errCancelledByHandler
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
			return errors.Annotate(err).Reason("creating parent directory").Err()
		}
		if err := os.Link(originalPath, target); err != nil {
			return errors.Annotate(err).Reason("creating hardlink").Err()
		}
		*state = StateDone
		if originalCancelled {
			return errCancelledByHandler
		}
		return nil

	case toc.TypeFIFO, toc.TypeSocket, toc.TypeCharDevice, toc.TypeBlockDevice:
		if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
			return errors.Annotate(err).Reason("creating parent directory").Err()
		}
		if err := createSpecial(f, target); err != nil {
			return err
		}
		*state = StateApplyingMetadata
		if a.applyCommonMetadata(f, target) {
			*state = StateDone
			return errCancelledByHandler
		}
		*state = StateDone
		return nil

	case toc.TypeFile:
		if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
			return errors.Annotate(err).Reason("creating parent directory").Err()
		}
		*state = StateStreamingPayload
		if err := a.extractRegularFile(f, target); err != nil {
			*state = StateFailed
			return err
		}
		*state = StateApplyingMetadata
		if a.applyCommonMetadata(f, target) {
			*state = StateDone
			return errCancelledByHandler
		}
		*state = StateDone
		return nil
	}
	return errors.Reason("unrecognized file type %(type)q").D("type", string(f.Type())).Err()
}

// extractOriginalByID implements spec §4.10's hardlink fallback: "otherwise
// extract the original first, then link." WalkFiles visits the forest in
// document order, so a hardlink can precede the file it targets; this
// resolves the original out of band via indexByID, computes its own
// destination path independent of the current WalkFiles position, and
// extracts it on demand. resolving guards against a cyclic or
// self-referential link property in a malformed TOC.
func (a *Archive) extractOriginalByID(destRoot string, id uint64, extractedPath map[uint64]string, resolving map[uint64]bool) (string, error) {
	if path, ok := extractedPath[id]; ok {
		return path, nil
	}
	if resolving[id] {
		return "", errors.Reason("cyclic hardlink reference to id %(id)d").D("id", id).Err()
	}
	original, ok := a.indexByID()[id]
	if !ok {
		return "", errors.Reason("hardlink target id %(id)d not found in archive").D("id", id).Err()
	}
	resolving[id] = true
	defer delete(resolving, id)

	target, ok := a.extractionTarget(destRoot, pathSegsFor(original))
	if !ok {
		return "", errors.Reason("hardlink original %(name)q: path traversal").D("name", original.Name()).Err()
	}
	state := StatePending
	if err := a.extractOne(destRoot, original, target, extractedPath, resolving, &state); err != nil {
		if err == errCancelledByHandler {
			extractedPath[id] = target
			return target, err
		}
		return "", errors.Annotate(err).Reason("extracting hardlink original %(name)q").D("name", original.Name()).Err()
	}
	extractedPath[id] = target
	return target, nil
}

func (a *Archive) extractRegularFile(f *toc.File, target string) error {
	src, err := a.ExtractToStream(f)
	if err != nil {
		return err
	}
	defer src.Close()

	var sink io.WriteCloser
	if a.opts.extractStdout {
		sink = pipeline.StdoutSink()
	} else {
		sink, err = pipeline.FileSink(target)
		if err != nil {
			return err
		}
	}
	defer sink.Close()

	if _, err := io.Copy(sink, src); err != nil {
		return errors.Annotate(err).Reason("streaming payload").Err()
	}
	return nil
}

// applyCommonMetadata best-effort applies mode/ownership/timestamps; any
// failure here is reported through the error handler as a non-fatal
// filesystem error (spec §7 "Filesystem error during extract"). Returns
// whether the handler asked to cancel the extraction.
func (a *Archive) applyCommonMetadata(f *toc.File, target string) bool {
	cancel := false
	if modeProp, ok := toc.FindProperty(f.Properties, "mode"); ok {
		if mode, err := strconv.ParseUint(modeProp.Value, 8, 32); err == nil {
			perm := os.FileMode(mode) & os.ModePerm
			if a.opts.savesuid {
				perm |= os.FileMode(mode) &^ os.ModePerm & (os.ModeSetuid | os.ModeSetgid)
			}
			if err := os.Chmod(target, perm); err != nil {
				if a.report(SeverityWarning, ClassArchiveExtraction, ErrorContext{File: f, Msg: "chmod", Err: err}) {
					cancel = true
				}
			}
		}
	}
	if a.applyOwnership(f, target) {
		cancel = true
	}
	if mtimeProp, ok := toc.FindProperty(f.Properties, "mtime"); ok {
		if mtime, err := time.Parse(time.RFC3339, mtimeProp.Value); err == nil {
			if err := os.Chtimes(target, mtime, mtime); err != nil {
				if a.report(SeverityWarning, ClassArchiveExtraction, ErrorContext{File: f, Msg: "chtimes", Err: err}) {
					cancel = true
				}
			}
		}
	}
	return cancel
}
