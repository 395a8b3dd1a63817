//go:build windows

// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import "os"

func ownerOf(fi os.FileInfo) (uid, gid uint32, ok bool) { return 0, 0, false }

func userGroupNames(uid, gid uint32) (userName, groupName string) { return "", "" }
