// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package archive is the xar orchestrator: it owns the in-memory Archive
// handle (option bag, file forest, indices, heap), and drives the read
// path (Open), the write path (New/Close), and extraction (Extract,
// ExtractToStream) described by spec §4.8-§4.11.
//
// Everything below this package — xardata, xardata/toc, tocxml, pipeline,
// signature — is a leaf library with no notion of "an archive"; this
// package is the only one that wires them together into the lifecycle
// spec §3 describes: options set, files added, optionally signed, closed;
// or opened, validated, and extracted.
package archive
