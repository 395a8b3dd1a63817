// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package toc implements the xar table-of-contents object model: a forest
// of File nodes, each carrying an ordered tree of Property nodes (each in
// turn carrying an ordered list of Attribute pairs), plus the archive-level
// Subdocument and Signature entities that hang off the same document.
//
// This is a direct generalization of the teacher's sardata/toc package,
// which modeled the same kind of tree (Tree/Entry/File/SymLink) as a
// protobuf sum type. Here the wire format is XML (see the tocxml package)
// and the model is correspondingly more dynamic: properties are named,
// ordered, nestable key/value nodes rather than a fixed set of struct
// fields, per spec §3-§4.4.
package toc
