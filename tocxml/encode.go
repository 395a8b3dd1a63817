// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tocxml

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata/toc"
)

// nsAttrKey and enctypeAttrKey are the attribute names this encoding uses
// to carry Property.Namespace and the binary-unsafe-value escape hatch
// (spec §4.4 "Property-get tolerance").
const (
	nsAttrKey      = "ns"
	enctypeAttrKey = "enctype"
	base64Enctype  = "base64"
)

// Encode writes d to w as the xar TOC XML document, indented two spaces per
// level to match the teacher's preference for readable serialized output.
func Encode(d *toc.Document, w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	if err := enc.EncodeToken(start("xar")); err != nil {
		return errors.Annotate(err).Reason("writing <xar>").Err()
	}
	if err := enc.EncodeToken(start("toc")); err != nil {
		return errors.Annotate(err).Reason("writing <toc>").Err()
	}

	for _, p := range d.Properties.Children() {
		if err := writeProperty(enc, p); err != nil {
			return err
		}
	}
	for _, sig := range d.Signatures {
		if err := writeSignature(enc, sig); err != nil {
			return err
		}
	}
	for _, f := range d.Files {
		if err := writeFile(enc, f); err != nil {
			return err
		}
	}
	for _, sub := range d.Subdocuments {
		if err := writeSubdocument(enc, sub); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(end("toc")); err != nil {
		return errors.Annotate(err).Reason("writing </toc>").Err()
	}
	if err := enc.EncodeToken(end("xar")); err != nil {
		return errors.Annotate(err).Reason("writing </xar>").Err()
	}
	return enc.Flush()
}

func start(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}}
}

func end(name string) xml.EndElement {
	return xml.EndElement{Name: xml.Name{Local: name}}
}

func attributeElements(attrs []toc.Attribute) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		key := a.Key
		if a.Namespace != toc.NamespaceDefault {
			key = string(a.Namespace) + ":" + key
		}
		out = append(out, xml.Attr{Name: xml.Name{Local: key}, Value: a.Value})
	}
	return out
}

func writeProperty(enc *xml.Encoder, p *toc.Property) error {
	attrs := attributeElements(p.Attrs)
	if p.Namespace != toc.NamespaceDefault {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: nsAttrKey}, Value: string(p.Namespace)})
	}

	value := p.Value
	if p.HasValue && p.Key == "name" && !isLatin1(value) {
		value = base64.StdEncoding.EncodeToString([]byte(value))
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: enctypeAttrKey}, Value: base64Enctype})
	}

	s := xml.StartElement{Name: xml.Name{Local: p.Key}, Attr: attrs}
	if err := enc.EncodeToken(s); err != nil {
		return errors.Annotate(err).Reason("writing property %(key)q").D("key", p.Key).Err()
	}
	if p.HasValue {
		if err := enc.EncodeToken(xml.CharData(value)); err != nil {
			return errors.Annotate(err).Reason("writing value of %(key)q").D("key", p.Key).Err()
		}
	}
	for _, c := range p.Children() {
		if err := writeProperty(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: s.Name})
}

func isLatin1(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}

func writeFile(enc *xml.Encoder, f *toc.File) error {
	attrs := append([]xml.Attr{{Name: xml.Name{Local: "id"}, Value: strconv.FormatUint(f.ID, 10)}},
		attributeElements(f.Properties.Attrs)...)
	s := xml.StartElement{Name: xml.Name{Local: "file"}, Attr: attrs}
	if err := enc.EncodeToken(s); err != nil {
		return errors.Annotate(err).Reason("writing <file id=%(id)d>").D("id", f.ID).Err()
	}
	for _, p := range f.Properties.Children() {
		if err := writeProperty(enc, p); err != nil {
			return err
		}
	}
	for _, ea := range f.EA {
		if err := writeEA(enc, ea); err != nil {
			return err
		}
	}
	for _, child := range f.Children() {
		if err := writeFile(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: s.Name})
}

func writeEA(enc *xml.Encoder, ea *toc.ExtendedAttribute) error {
	s := xml.StartElement{
		Name: xml.Name{Local: "ea"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: strconv.FormatUint(ea.ID, 10)}},
	}
	if err := enc.EncodeToken(s); err != nil {
		return errors.Annotate(err).Reason("writing <ea id=%(id)d>").D("id", ea.ID).Err()
	}
	for _, p := range ea.Properties.Children() {
		if err := writeProperty(enc, p); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: s.Name})
}

func writeSimpleElement(enc *xml.Encoder, name, value string) error {
	s := start(name)
	if err := enc.EncodeToken(s); err != nil {
		return errors.Annotate(err).Reason("writing <%(name)s>").D("name", name).Err()
	}
	if err := enc.EncodeToken(xml.CharData(value)); err != nil {
		return errors.Annotate(err).Reason("writing value of <%(name)s>").D("name", name).Err()
	}
	return enc.EncodeToken(end(name))
}

func writeSignature(enc *xml.Encoder, sig *toc.Signature) error {
	s := xml.StartElement{
		Name: xml.Name{Local: "signature"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "style"}, Value: sig.Style}},
	}
	if err := enc.EncodeToken(s); err != nil {
		return errors.Annotate(err).Reason("writing <signature>").Err()
	}
	if err := writeSimpleElement(enc, "offset", strconv.FormatUint(sig.Offset, 10)); err != nil {
		return err
	}
	if err := writeSimpleElement(enc, "size", strconv.FormatInt(sig.DeclaredLength, 10)); err != nil {
		return err
	}
	if len(sig.Certificates) > 0 {
		if err := enc.EncodeToken(start("KeyInfo")); err != nil {
			return err
		}
		if err := enc.EncodeToken(start("X509Data")); err != nil {
			return err
		}
		for _, cert := range sig.Certificates {
			if err := writeSimpleElement(enc, "X509Certificate", base64.StdEncoding.EncodeToString(cert)); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(end("X509Data")); err != nil {
			return err
		}
		if err := enc.EncodeToken(end("KeyInfo")); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: s.Name})
}

func writeSubdocument(enc *xml.Encoder, sub *toc.Subdocument) error {
	s := xml.StartElement{
		Name: xml.Name{Local: "subdoc"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "subdoc_name"}, Value: sub.Name}},
	}
	if err := enc.EncodeToken(s); err != nil {
		return errors.Annotate(err).Reason("writing <subdoc subdoc_name=%(name)q>").D("name", sub.Name).Err()
	}
	if sub.HasValue {
		if err := enc.EncodeToken(xml.CharData(sub.Value)); err != nil {
			return err
		}
	}
	for _, p := range sub.Properties.Children() {
		if err := writeProperty(enc, p); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: s.Name})
}
