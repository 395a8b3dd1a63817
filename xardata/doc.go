// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package xardata implements the low-level byte-oriented primitives of the
// xar container format: the fixed header, the named digest registry, the
// streaming compression codec registry, and the on-disk heap used to
// accumulate payloads while an archive is being written.
//
// Nothing in this package knows about the table-of-contents object model or
// its XML encoding; see the toc and tocxml packages for that.
package xardata
