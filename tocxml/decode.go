// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tocxml

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata/toc"
)

// Decode reads a xar TOC XML document from r and reconstructs its object
// model. Decode is streaming: it walks only the structure the document
// declares (spec §4.5 "Reader is streaming and walks only the declared
// structure"), never buffering the whole tree as generic XML nodes first.
//
// Elements directly under <toc> named "file" or "signature" populate
// Document.Files and Document.Signatures respectively; "subdoc" elements
// populate Document.Subdocuments. Any other element is treated as an
// archive-level property and attached under Document.Properties.
func Decode(r io.Reader) (*toc.Document, error) {
	dec := xml.NewDecoder(r)
	if err := expectStart(dec, "xar"); err != nil {
		return nil, err
	}
	if err := expectStart(dec, "toc"); err != nil {
		return nil, err
	}

	d := toc.NewDocument()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading toc body").Err()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "file":
				f, err := readFile(dec, t, d)
				if err != nil {
					return nil, err
				}
				d.Files = append(d.Files, f)
			case "signature":
				sig, err := readSignature(dec, t)
				if err != nil {
					return nil, err
				}
				d.Signatures = append(d.Signatures, sig)
			case "subdoc":
				sub, err := readSubdocument(dec, t)
				if err != nil {
					return nil, err
				}
				d.Subdocuments = append(d.Subdocuments, sub)
			default:
				p, err := readProperty(dec, t)
				if err != nil {
					return nil, err
				}
				d.Properties.AppendChild(p)
			}
		case xml.EndElement:
			if t.Name.Local == "toc" {
				return d, nil
			}
		}
	}
}

func expectStart(dec *xml.Decoder, name string) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return errors.Annotate(err).Reason("looking for opening <%(name)s>").D("name", name).Err()
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != name {
				return errors.Reason("expected <%(want)s>, got <%(got)s>").
					D("want", name).D("got", se.Name.Local).Err()
			}
			return nil
		}
	}
}

// splitAttrNamespace recovers a "ns:key" attribute encoding back into its
// namespace and bare key, mirroring the convention writeAttribute uses.
func splitAttrNamespace(name string) (toc.Namespace, string) {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return toc.Namespace(name[:idx]), name[idx+1:]
	}
	return toc.NamespaceDefault, name
}

func readProperty(dec *xml.Decoder, s xml.StartElement) (*toc.Property, error) {
	p := &toc.Property{Key: s.Name.Local}
	enctype := ""
	for _, a := range s.Attr {
		switch a.Name.Local {
		case nsAttrKey:
			p.Namespace = toc.Namespace(a.Value)
		case enctypeAttrKey:
			enctype = a.Value
		default:
			ns, key := splitAttrNamespace(a.Name.Local)
			p.Attrs = append(p.Attrs, toc.Attribute{Key: key, Value: a.Value, Namespace: ns})
		}
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading property %(key)q").D("key", p.Key).Err()
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			child, err := readProperty(dec, t)
			if err != nil {
				return nil, err
			}
			p.AppendChild(child)
		case xml.EndElement:
			if len(p.Children()) == 0 {
				if err := applyPropertyText(p, text.String(), enctype); err != nil {
					return nil, err
				}
			}
			return p, nil
		}
	}
}

func applyPropertyText(p *toc.Property, raw, enctype string) error {
	text := strings.TrimSpace(raw)
	if enctype == base64Enctype {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return errors.Annotate(err).Reason("decoding base64 value of %(key)q").D("key", p.Key).Err()
		}
		p.Value = string(decoded)
		p.HasValue = true
		return nil
	}
	if text != "" {
		p.Value = text
		p.HasValue = true
	}
	return nil
}

func readFile(dec *xml.Decoder, s xml.StartElement, d *toc.Document) (*toc.File, error) {
	f := &toc.File{Properties: &toc.Property{}}
	for _, a := range s.Attr {
		if a.Name.Local == "id" {
			id, err := strconv.ParseUint(a.Value, 10, 64)
			if err != nil {
				return nil, errors.Annotate(err).Reason("parsing file id %(raw)q").D("raw", a.Value).Err()
			}
			f.ID = id
			continue
		}
		ns, key := splitAttrNamespace(a.Name.Local)
		f.Properties.Attrs = append(f.Properties.Attrs, toc.Attribute{Key: key, Value: a.Value, Namespace: ns})
	}
	d.ObserveFileID(f.ID)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading file %(id)d").D("id", f.ID).Err()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "file":
				child, err := readFile(dec, t, d)
				if err != nil {
					return nil, err
				}
				f.AppendChild(child)
			case "ea":
				ea, err := readEA(dec, t)
				if err != nil {
					return nil, err
				}
				f.EA = append(f.EA, ea)
			default:
				p, err := readProperty(dec, t)
				if err != nil {
					return nil, err
				}
				f.Properties.AppendChild(p)
			}
		case xml.EndElement:
			return f, nil
		}
	}
}

func readEA(dec *xml.Decoder, s xml.StartElement) (*toc.ExtendedAttribute, error) {
	ea := &toc.ExtendedAttribute{Properties: &toc.Property{}}
	for _, a := range s.Attr {
		if a.Name.Local == "id" {
			id, err := strconv.ParseUint(a.Value, 10, 64)
			if err != nil {
				return nil, errors.Annotate(err).Reason("parsing ea id %(raw)q").D("raw", a.Value).Err()
			}
			ea.ID = id
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading ea %(id)d").D("id", ea.ID).Err()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p, err := readProperty(dec, t)
			if err != nil {
				return nil, err
			}
			ea.Properties.AppendChild(p)
		case xml.EndElement:
			return ea, nil
		}
	}
}

func readSubdocument(dec *xml.Decoder, s xml.StartElement) (*toc.Subdocument, error) {
	name := ""
	for _, a := range s.Attr {
		if a.Name.Local == "subdoc_name" {
			name = a.Value
		}
	}
	sub := toc.NewSubdocument(name)
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading subdoc %(name)q").D("name", name).Err()
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			p, err := readProperty(dec, t)
			if err != nil {
				return nil, err
			}
			sub.Properties.AppendChild(p)
		case xml.EndElement:
			if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
				sub.Value = trimmed
				sub.HasValue = true
			}
			return sub, nil
		}
	}
}

func readSignature(dec *xml.Decoder, s xml.StartElement) (*toc.Signature, error) {
	sig := &toc.Signature{}
	for _, a := range s.Attr {
		if a.Name.Local == "style" {
			sig.Style = a.Value
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading signature").Err()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "offset":
				text, err := readLeafText(dec)
				if err != nil {
					return nil, err
				}
				v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
				if err != nil {
					return nil, errors.Annotate(err).Reason("parsing signature offset %(raw)q").D("raw", text).Err()
				}
				sig.Offset = v
			case "size":
				text, err := readLeafText(dec)
				if err != nil {
					return nil, err
				}
				v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
				if err != nil {
					return nil, errors.Annotate(err).Reason("parsing signature size %(raw)q").D("raw", text).Err()
				}
				sig.DeclaredLength = v
			case "KeyInfo":
				certs, err := readKeyInfo(dec)
				if err != nil {
					return nil, err
				}
				sig.Certificates = append(sig.Certificates, certs...)
			default:
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return sig, nil
		}
	}
}

func readKeyInfo(dec *xml.Decoder) ([][]byte, error) {
	var certs [][]byte
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading KeyInfo").Err()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "X509Data" {
				inner, err := readX509Data(dec)
				if err != nil {
					return nil, err
				}
				certs = append(certs, inner...)
			} else if err := dec.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return certs, nil
		}
	}
}

func readX509Data(dec *xml.Decoder) ([][]byte, error) {
	var certs [][]byte
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err).Reason("reading X509Data").Err()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "X509Certificate" {
				text, err := readLeafText(dec)
				if err != nil {
					return nil, err
				}
				raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
				if err != nil {
					return nil, errors.Annotate(err).Reason("decoding X509Certificate").Err()
				}
				certs = append(certs, raw)
			} else if err := dec.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return certs, nil
		}
	}
}

// readLeafText accumulates character data up to the matching end element,
// skipping (not recursing into) any unexpected nested elements.
func readLeafText(dec *xml.Decoder) (string, error) {
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", errors.Annotate(err).Reason("reading leaf text").Err()
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return buf.String(), nil
		}
	}
}
