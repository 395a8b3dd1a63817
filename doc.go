// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package xar implements the eXtensible ARchive container format: a fixed
// big-endian header, a compressed XML table of contents describing a
// forest of files and their properties, and a heap byte region holding the
// TOC's own digest, any signatures, and every file's payload.
//
// The format is split across several packages, each owning one layer:
//
//   - xardata holds the wire-level primitives: the header codec, the heap
//     byte store, the digest and compression codec registries.
//   - xardata/toc is the in-memory object model for the table of
//     contents — files, properties, attributes, signatures — independent
//     of its XML serialization.
//   - tocxml serializes and parses that object model to and from the XML
//     wire format.
//   - pipeline builds the add-side and extract-side module chains that
//     thread a payload through size accounting, checksumming, and
//     compression.
//   - signature reserves and fills heap byte ranges for detached
//     signatures, storing their certificate chains in the TOC.
//   - archive is the orchestrator: Archive ties the layers above together
//     into the full create/add/close and open/extract/stream lifecycle.
//
// Building an archive means calling archive.New, adding entries with
// Archive.AddFile/AddDirectory/AddSymlink/..., and calling Archive.Close to
// serialize the TOC and append the heap. Reading one means calling
// archive.Open, inspecting Archive.Document, and either Archive.Extract to
// recreate the file forest on disk or Archive.ExtractToStream to pull a
// single file's payload directly.
package xar
