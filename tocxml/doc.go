// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tocxml serializes and deserializes a toc.Document to and from the
// xar TOC XML wire format (spec §4.5): an outer <xar><toc>...</toc></xar>
// envelope carrying archive-level properties, signatures, the file forest,
// and subdocuments.
//
// encoding/xml's struct-tag marshaling cannot express this document: the
// property tree is dynamically named and nests to arbitrary depth, which no
// fixed Go struct can declare ahead of time. Instead this package walks
// xml.Encoder/xml.Decoder tokens directly, the same low-level approach
// taken by the pack's other xar reader for its own (fixed-schema) subset of
// this format.
package tocxml
