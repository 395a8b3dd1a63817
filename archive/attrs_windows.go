//go:build windows

// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata/toc"
)

// createSpecial is unsupported on Windows: there is no mknod equivalent for
// device/fifo/socket nodes, so extraction of one reports a fatal error for
// that entry only (spec §7 "unsupported file type on this platform").
func createSpecial(f *toc.File, target string) error {
	return errors.Reason("cannot recreate %(type)q entries on Windows").D("type", string(f.Type())).Err()
}

// applyOwnership is a no-op on Windows; xar's uid/gid model has no
// equivalent in the Windows ACL model.
func (a *Archive) applyOwnership(f *toc.File, target string) bool { return false }
