// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"fmt"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata/toc"
)

// Severity is the level at which the error callback reports a condition
// (spec §6 "Error callback contract").
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityNormal
	SeverityWarning
	SeverityNonfatal
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityNormal:
		return "normal"
	case SeverityWarning:
		return "warning"
	case SeverityNonfatal:
		return "nonfatal"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// Class groups an error report by which half of the lifecycle raised it.
type Class int

const (
	ClassArchiveCreation Class = iota
	ClassArchiveExtraction
)

func (c Class) String() string {
	if c == ClassArchiveCreation {
		return "archive-creation"
	}
	return "archive-extraction"
}

// ErrorContext is the information handed to an ErrorHandler alongside a
// Severity and Class (spec §6): the offending file if one is implicated,
// a human-readable message, and the last underlying system error.
type ErrorContext struct {
	File *toc.File
	Msg  string
	Err  error
}

func (c ErrorContext) String() string {
	name := "<archive>"
	if c.File != nil {
		name = c.File.Name()
	}
	if c.Err != nil {
		return fmt.Sprintf("%s: %s: %v", name, c.Msg, c.Err)
	}
	return fmt.Sprintf("%s: %s", name, c.Msg)
}

// ErrorHandler is invoked for every warning or error the archive reports.
// Returning true requests cancellation of the in-progress operation;
// false (the default, when Handler is nil) continues past
// warning/nonfatal severities. Fatal reports are always terminal for their
// scope regardless of the handler's return value.
type ErrorHandler func(sev Severity, class Class, ctx ErrorContext) (cancel bool)

// report runs a's handler, if any, and returns whether the caller asked to
// cancel. A nil handler never cancels.
func (a *Archive) report(sev Severity, class Class, ctx ErrorContext) bool {
	if a.opts.handler == nil {
		return false
	}
	return a.opts.handler(sev, class, ctx)
}

// errCancelledByHandler signals that an ErrorHandler asked for cancellation
// via its return value (spec §6) from a call site nested below Extract's
// main loop, so the loop can stop without treating the current entry as a
// failure in its own right.
var errCancelledByHandler = errors.New("operation cancelled by error handler")

// ChecksumMismatchError reports that a digest recorded in the TOC does not
// match the bytes actually read, for either the TOC itself or one file's
// archived/extracted payload (spec §7 "TOC digest mismatch",
// "Archived or extracted checksum mismatch").
type ChecksumMismatchError struct {
	Stage    string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s checksum mismatch: expected %s got %s", e.Stage, e.Expected, e.Actual)
}

// PathTraversalError reports a file whose extraction target escaped the
// destination root after strip-components stripping (spec §7 "Path
// traversal attempt", I-invariant P5).
type PathTraversalError struct {
	Name string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal: entry %q escapes destination root", e.Name)
}

// OptionMisuseError reports an option set call rejected outright: an
// unknown option name/value, or toc-cksum changed after the first file was
// added (spec §7 "Option misuse", I7).
type OptionMisuseError struct {
	Option string
	Reason string
}

func (e *OptionMisuseError) Error() string {
	return fmt.Sprintf("option %q: %s", e.Option, e.Reason)
}
