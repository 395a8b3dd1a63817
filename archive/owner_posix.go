//go:build !windows

// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"os"
	"os/user"
	"syscall"
)

// ownerOf reads the numeric uid/gid off fi's platform-specific Sys() value.
func ownerOf(fi os.FileInfo) (uid, gid uint32, ok bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return st.Uid, st.Gid, true
}

// userGroupNames resolves uid/gid to symbolic names, ignoring lookup
// failures (an orphaned uid with no passwd entry is common in containers).
func userGroupNames(uid, gid uint32) (userName, groupName string) {
	if u, err := user.LookupId(fmtUint(uid)); err == nil {
		userName = u.Username
	}
	if g, err := user.LookupGroupId(fmtUint(gid)); err == nil {
		groupName = g.Name
	}
	return userName, groupName
}
