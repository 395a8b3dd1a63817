// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build windows

package archive

import "os"

// inodeKeyOf has no portable equivalent on Windows' os.FileInfo without an
// extra per-file open+GetFileInformationByHandle call; linksame detection
// is simply unavailable there (every AddFile call falls through to a
// regular, non-hardlink add).
func inodeKeyOf(fi os.FileInfo) (inodeKey, bool) {
	return inodeKey{}, false
}
