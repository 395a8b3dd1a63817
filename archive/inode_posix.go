// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package archive

import (
	"os"
	"syscall"
)

// inodeKeyOf extracts the device+inode pair identifying fi's underlying
// file, used to detect hardlinked inputs during add (spec §4.6
// "linksame"). The second return is false on platforms or filesystems that
// don't expose a *syscall.Stat_t (ok is then never usable for hardlink
// detection).
func inodeKeyOf(fi os.FileInfo) (inodeKey, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return inodeKey{}, false
	}
	return inodeKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}
