// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package signature implements the xar signature subsystem (spec §4.11):
// heap byte ranges reserved before any file is added, later filled in by
// an externally supplied signer callback over the TOC digest, plus the
// certificate chain that travels alongside each signature in the TOC.
//
// Verification is explicitly out of scope (spec §1 non-goals exclude PKI);
// this package only reserves space, invokes the signer, and hands the
// signed bytes back to an external verifier via CopySignedData, mirroring
// original xar's xar_signature_copy_signed_data.
package signature
