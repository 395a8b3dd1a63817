// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package signature

import (
	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata"
	"github.com/mackyle/xar/xardata/toc"
)

// SignerFunc produces the signature bytes for digest — the bytes recorded
// at checksum/offset..checksum/size in the TOC — given the context
// supplied at reservation time. The returned slice's length must equal
// declaredLen; a mismatch is a fatal signer failure (spec §4.9 step 8,
// §7 "signer callback failure or wrong output length").
type SignerFunc func(ctx interface{}, digest []byte, declaredLen int64) ([]byte, error)

// Reservation is one signature's placeholder heap range plus the metadata
// needed to fill it and serialize it into the TOC (spec §3 "Signature",
// §4.11).
type Reservation struct {
	Style          string
	DeclaredLength int64
	Offset         uint64
	Certificates   [][]byte // DER bytes, presentation order

	signer SignerFunc
	ctx    interface{}
}

// New reserves a new signature of the given style and declared length at
// offset (the archive's heap_offset at the moment of reservation; the
// caller is responsible for then advancing heap_offset by declaredLength
// and for rejecting reservation attempts made after any file has been
// added, per spec §4.11).
func New(style string, declaredLength int64, offset uint64, signer SignerFunc, ctx interface{}) *Reservation {
	return &Reservation{
		Style:          style,
		DeclaredLength: declaredLength,
		Offset:         offset,
		signer:         signer,
		ctx:            ctx,
	}
}

// FromTOC reconstructs a read-only Reservation — one with no signer, since
// it came from an archive opened for reading rather than created — from a
// parsed toc.Signature.
func FromTOC(sig *toc.Signature) *Reservation {
	return &Reservation{
		Style:          sig.Style,
		DeclaredLength: sig.DeclaredLength,
		Offset:         sig.Offset,
		Certificates:   sig.Certificates,
	}
}

// ToTOC converts r into the TOC object model's Signature node, for
// serialization by tocxml.
func (r *Reservation) ToTOC() *toc.Signature {
	return &toc.Signature{
		Style:          r.Style,
		DeclaredLength: r.DeclaredLength,
		Offset:         r.Offset,
		Certificates:   r.Certificates,
	}
}

// AddCertificate appends a DER-encoded X.509 certificate to r's chain, in
// presentation order (xar_signature_add_x509certificate).
func (r *Reservation) AddCertificate(der []byte) {
	r.Certificates = append(r.Certificates, der)
}

// Sign invokes r's signer over digest and writes the result into heap at
// r's reserved offset. It fails if the signer's output length does not
// equal DeclaredLength (spec §4.9 step 8).
func (r *Reservation) Sign(heap *xardata.Heap, digest []byte) error {
	if r.signer == nil {
		return errors.Reason("signature %(style)q has no signer callback").D("style", r.Style).Err()
	}
	out, err := r.signer(r.ctx, digest, r.DeclaredLength)
	if err != nil {
		return errors.Annotate(err).Reason("signer %(style)q failed").D("style", r.Style).Err()
	}
	if int64(len(out)) != r.DeclaredLength {
		return errors.Reason("signer %(style)q returned %(got)d bytes, want %(want)d").
			D("style", r.Style).D("got", len(out)).D("want", r.DeclaredLength).Err()
	}
	return heap.WriteAt(r.Offset, out)
}

// CopySignedData returns the bytes an external verifier needs: the TOC
// digest that was signed, the signature bytes themselves (read back from
// heap), and the heap-relative offset they were written at. Verification
// itself is out of scope; this only hands the three values to the caller,
// mirroring original xar's xar_signature_copy_signed_data.
func (r *Reservation) CopySignedData(heap *xardata.Heap, digest []byte) (signedData, signatureBytes []byte, offset uint64, err error) {
	signatureBytes, err = heap.ReadAt(r.Offset, uint64(r.DeclaredLength))
	if err != nil {
		return nil, nil, 0, errors.Annotate(err).Reason("reading signature %(style)q from heap").D("style", r.Style).Err()
	}
	return digest, signatureBytes, r.Offset, nil
}
