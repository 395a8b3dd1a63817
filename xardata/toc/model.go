// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import "strconv"

// Namespace is the closed set of property/attribute namespace prefixes
// this port recognizes (spec §9 Open Question, resolved in DESIGN.md):
// the default (unprefixed) namespace, and "ea" for extended attributes.
// Any other prefix encountered on read is preserved verbatim but never
// interpreted; SetProperty/AttachProperty reject writing one.
type Namespace string

const (
	NamespaceDefault Namespace = ""
	NamespaceEA      Namespace = "ea"
)

// KnownNamespace reports whether ns is one this port interprets.
func KnownNamespace(ns Namespace) bool {
	return ns == NamespaceDefault || ns == NamespaceEA
}

// Attribute is a single (key, value) pair, optionally scoped to a
// namespace, attached to a Property (spec §3 "Attribute").
type Attribute struct {
	Key       string
	Value     string
	Namespace Namespace
}

// Property is a named tree node with an optional text value and an ordered
// list of child properties and attributes (spec §3 "Property"). The zero
// value is an empty, valueless property.
type Property struct {
	Key       string
	Value     string
	HasValue  bool
	Namespace Namespace
	Attrs     []Attribute

	children []*Property
	parent   *Property
}

// Parent returns the property's parent node, or nil at the root of a
// property tree.
func (p *Property) Parent() *Property { return p.parent }

// Children returns the property's children in insertion order. The
// returned slice must not be mutated by the caller.
func (p *Property) Children() []*Property { return p.children }

// Attr returns the first attribute named key in any namespace, and whether
// it was found.
func (p *Property) Attr(key string) (Attribute, bool) {
	for _, a := range p.Attrs {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}

// SetAttr sets (overwriting if present) the attribute named key in the
// default namespace.
func (p *Property) SetAttr(key, value string) {
	for i := range p.Attrs {
		if p.Attrs[i].Key == key && p.Attrs[i].Namespace == NamespaceDefault {
			p.Attrs[i].Value = value
			return
		}
	}
	p.Attrs = append(p.Attrs, Attribute{Key: key, Value: value})
}

// addChild appends a freshly-allocated child property named key and
// returns it. Used by Attach to build out intermediate path segments.
func (p *Property) addChild(key string, ns Namespace) *Property {
	child := &Property{Key: key, Namespace: ns, parent: p}
	p.children = append(p.children, child)
	return child
}

// removeChild removes the first occurrence of child from p's children.
func (p *Property) removeChild(child *Property) bool {
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return true
		}
	}
	return false
}

// AppendChild links child as p's newest child, for callers (such as tocxml)
// that build a Property tree node-by-node rather than through Attach/Set.
func (p *Property) AppendChild(child *Property) {
	child.parent = p
	p.children = append(p.children, child)
}

// FileType enumerates the closed set of File type-property values spec I2
// recognizes.
type FileType string

const (
	TypeFile            FileType = "file"
	TypeDirectory       FileType = "directory"
	TypeSymlink         FileType = "symlink"
	TypeHardlink        FileType = "hardlink"
	TypeCharDevice      FileType = "character special"
	TypeBlockDevice     FileType = "block special"
	TypeFIFO            FileType = "fifo"
	TypeSocket          FileType = "socket"
	TypeWhiteout        FileType = "whiteout"
)

// ValidFileType reports whether t is one of the nine types I2 enumerates.
func ValidFileType(t FileType) bool {
	switch t {
	case TypeFile, TypeDirectory, TypeSymlink, TypeHardlink, TypeCharDevice,
		TypeBlockDevice, TypeFIFO, TypeSocket, TypeWhiteout:
		return true
	}
	return false
}

// linkOriginal is the literal value the "link" property holds on the
// canonical entry of a hardlink group (spec I2).
const linkOriginal = "original"

// File is one node of the xar file forest (spec §3 "File"). Properties is
// the root of this file's property tree; EA holds the extended-attribute
// subtrees, each itself shaped like a property tree keyed "ea" with its
// own id (spec §3, §4.6 supplement).
type File struct {
	ID         uint64
	Properties *Property
	EA         []*ExtendedAttribute

	// FSPath is the filesystem path this entry shadows during add/extract.
	// It is never persisted to the TOC.
	FSPath string

	parent   *File
	children []*File
}

// ExtendedAttribute is one archived EA: its own id plus a property subtree
// carrying the EA's name, value encoding, and raw bytes, per original_source
// ea.c.
type ExtendedAttribute struct {
	ID         uint64
	Properties *Property
}

// NewFile allocates an empty File with an initialized (unkeyed) property
// root. It does not assign an ID or link the file into any tree; use
// Document.CreateFile for that.
func NewFile() *File {
	return &File{Properties: &Property{}}
}

// Parent returns f's parent in the file forest, or nil at a root.
func (f *File) Parent() *File { return f.parent }

// Children returns f's children in insertion order.
func (f *File) Children() []*File { return f.children }

// AppendChild links child as f's newest child, for callers (such as
// tocxml) that reconstruct the file forest node-by-node.
func (f *File) AppendChild(child *File) {
	child.parent = f
	f.children = append(f.children, child)
}

// Name returns the file's "name" property value.
func (f *File) Name() string {
	if p, ok := FindProperty(f.Properties, "name"); ok {
		return p.Value
	}
	return ""
}

// SetName sets the file's "name" property, overwriting any existing value.
func (f *File) SetName(name string) {
	SetProperty(f.Properties, "name", name, true)
}

// Type returns the file's "type" property value.
func (f *File) Type() FileType {
	if p, ok := FindProperty(f.Properties, "type"); ok {
		return FileType(p.Value)
	}
	return ""
}

// SetType sets the file's "type" property, overwriting any existing value.
func (f *File) SetType(t FileType) {
	SetProperty(f.Properties, "type", string(t), true)
}

// LinkOriginal reports whether f is the canonical entry of a hardlink
// group (its "link" property, if any, has value "original").
func (f *File) LinkOriginal() bool {
	p, ok := FindProperty(f.Properties, "link")
	return ok && p.Value == linkOriginal
}

// MarkLinkOriginal marks f as the canonical entry of a hardlink group.
func (f *File) MarkLinkOriginal() {
	SetProperty(f.Properties, "link", linkOriginal, true)
}

// LinkTarget returns the file id f's "link" property references, for a
// File whose Type is TypeHardlink.
func (f *File) LinkTarget() (uint64, bool) {
	p, ok := FindProperty(f.Properties, "link")
	if !ok {
		return 0, false
	}
	id, ok := p.Attr("id")
	if !ok {
		return 0, false
	}
	target, err := strconv.ParseUint(id.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return target, true
}

// SetLinkTarget marks f as a hardlink entry referencing the original file
// id target.
func (f *File) SetLinkTarget(target uint64) {
	p := SetProperty(f.Properties, "link", "", true)
	p.SetAttr("id", strconv.FormatUint(target, 10))
}

// Document is the root of a xar table of contents: the file forest plus
// archive-level properties, subdocuments, and signatures (spec §3
// "Archive", restricted to the serializable subset the TOC carries — the
// options/indices/heap/mode fields live on archive.Archive instead).
type Document struct {
	Files        []*File
	Properties   *Property
	Subdocuments []*Subdocument
	Signatures   []*Signature
	CaseSafe     bool

	lastFileID uint64
}

// NewDocument returns an empty Document ready to have files added to it.
func NewDocument() *Document {
	return &Document{Properties: &Property{}}
}

// NextFileID allocates the next dense-monotonic file id (spec I3).
func (d *Document) NextFileID() uint64 {
	d.lastFileID++
	return d.lastFileID
}

// ObserveFileID bumps the document's id counter so a subsequently created
// file never collides with one read from disk. Called while reconstructing
// a Document from a parsed TOC.
func (d *Document) ObserveFileID(id uint64) {
	if id > d.lastFileID {
		d.lastFileID = id
	}
}

// Subdocument is a named XML fragment hanging off the archive root,
// shaped like a property tree (spec §3 "Subdocument").
type Subdocument struct {
	Name       string
	Value      string
	HasValue   bool
	Properties *Property
}

// NewSubdocument returns an empty, named Subdocument.
func NewSubdocument(name string) *Subdocument {
	return &Subdocument{Name: name, Properties: &Property{}}
}

// Signature is a reserved, signer-filled heap byte range plus its
// certificate chain (spec §3 "Signature", §4.11).
type Signature struct {
	Style            string
	DeclaredLength   int64
	Offset           uint64
	Certificates     [][]byte // raw DER bytes, insertion order
}
