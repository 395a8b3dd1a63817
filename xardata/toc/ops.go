// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package toc

import (
	"strings"

	"github.com/luci/luci-go/common/errors"
)

const pathSep = "/"

// AttachProperty descends root along dottedPath ("a/b/c"), creating
// intermediate property nodes as needed, and returns a freshly created leaf
// node at that path — even if one already exists there (create-duplicate
// semantics), per spec §4.4.
func AttachProperty(root *Property, dottedPath string) (*Property, error) {
	segs := strings.Split(dottedPath, pathSep)
	cur := root
	for i, seg := range segs {
		ns, key, err := splitNamespace(seg)
		if err != nil {
			return nil, err
		}
		if i == len(segs)-1 {
			return cur.addChild(key, ns), nil
		}
		cur = descendOrCreate(cur, key, ns)
	}
	return cur, nil
}

func descendOrCreate(cur *Property, key string, ns Namespace) *Property {
	for _, c := range cur.children {
		if c.Key == key && c.Namespace == ns {
			return c
		}
	}
	return cur.addChild(key, ns)
}

func splitNamespace(seg string) (Namespace, string, error) {
	if idx := strings.IndexByte(seg, ':'); idx >= 0 {
		ns := Namespace(seg[:idx])
		if !KnownNamespace(ns) {
			return "", "", errors.Reason("unknown property namespace %(ns)q").D("ns", string(ns)).Err()
		}
		return ns, seg[idx+1:], nil
	}
	return NamespaceDefault, seg, nil
}

// FindProperty returns the first property reachable from root by
// descending dottedPath, or false if any segment along the way is absent.
// A missing property is not an error (spec §4.4 "Property-get tolerance").
func FindProperty(root *Property, dottedPath string) (*Property, bool) {
	segs := strings.Split(dottedPath, pathSep)
	cur := root
	for _, seg := range segs {
		ns, key, err := splitNamespace(seg)
		if err != nil {
			return nil, false
		}
		next := findChild(cur, key, ns)
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// FindAllProperties returns every direct child of root matching the final
// path segment, descending intermediate segments as FindProperty does. Used
// where a property key can legitimately repeat (e.g. multiple "ea"
// children).
func FindAllProperties(root *Property, dottedPath string) []*Property {
	idx := strings.LastIndex(dottedPath, pathSep)
	parent := root
	last := dottedPath
	if idx >= 0 {
		var ok bool
		parent, ok = FindProperty(root, dottedPath[:idx])
		if !ok {
			return nil
		}
		last = dottedPath[idx+1:]
	}
	ns, key, err := splitNamespace(last)
	if err != nil {
		return nil
	}
	var out []*Property
	for _, c := range parent.children {
		if c.Key == key && c.Namespace == ns {
			out = append(out, c)
		}
	}
	return out
}

func findChild(cur *Property, key string, ns Namespace) *Property {
	for _, c := range cur.children {
		if c.Key == key && c.Namespace == ns {
			return c
		}
	}
	return nil
}

// SetProperty sets the value of the property at dottedPath. When overwrite
// is true and a property already exists there, its value is replaced in
// place; otherwise (or if none exists yet) a new property node is created,
// per spec §4.4 "writers may choose overwrite or create-duplicate
// semantics (both exposed)".
func SetProperty(root *Property, dottedPath, value string, overwrite bool) *Property {
	if overwrite {
		if p, ok := FindProperty(root, dottedPath); ok {
			p.Value = value
			p.HasValue = true
			return p
		}
	}
	p, err := AttachProperty(root, dottedPath)
	if err != nil {
		// Unknown namespace is a caller bug when overwrite semantics already
		// validated the path once; AttachProperty is the only path that can
		// fail, and it only fails for a namespace that KnownNamespace rejects.
		panic(err)
	}
	p.Value = value
	p.HasValue = true
	return p
}

// UnsetProperty removes the first property found at dottedPath, reporting
// whether one was found.
func UnsetProperty(root *Property, dottedPath string) bool {
	p, ok := FindProperty(root, dottedPath)
	if !ok {
		return false
	}
	parent := p.parent
	if parent == nil {
		return false
	}
	return parent.removeChild(p)
}

// WalkProperties performs a stable, depth-first pre-order traversal of
// root's subtree, invoking cb for every node including root itself.
// Returning an error from cb stops the walk and propagates the error.
func WalkProperties(root *Property, cb func(path []string, p *Property) error) error {
	var walk func(p *Property, path []string) error
	walk = func(p *Property, path []string) error {
		if err := cb(path, p); err != nil {
			return err
		}
		for _, c := range p.children {
			if err := walk(c, append(append([]string{}, path...), c.Key)); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, nil)
}

// CreateFile allocates a new File named name under parent (nil for a new
// root-level entry), assigns it the document's next id, sets its name and
// type properties, and links it into the forest in insertion order.
func (d *Document) CreateFile(parent *File, name string, t FileType) *File {
	f := NewFile()
	f.ID = d.NextFileID()
	f.SetName(name)
	f.SetType(t)
	f.parent = parent
	if parent != nil {
		parent.children = append(parent.children, f)
	} else {
		d.Files = append(d.Files, f)
	}
	return f
}

// Lookup resolves a slash-separated path against the document's file
// forest. "." segments are skipped; ".." is rejected (spec §4.4).
func (d *Document) Lookup(path string) (*File, error) {
	segs := strings.Split(path, pathSep)
	siblings := d.Files
	var cur *File
	for _, seg := range segs {
		switch seg {
		case "":
			continue
		case ".":
			continue
		case "..":
			return nil, errors.Reason("relative path segment %(seg)q not allowed in lookup").
				D("seg", seg).Err()
		}
		var next *File
		for _, f := range siblings {
			if f.Name() == seg {
				next = f
				break
			}
		}
		if next == nil {
			return nil, errors.Reason("no such file %(seg)q under %(path)q").
				D("seg", seg).D("path", path).Err()
		}
		cur = next
		siblings = next.children
	}
	if cur == nil {
		return nil, errors.Reason("empty lookup path").Err()
	}
	return cur, nil
}

// ReplicateSubtree deep-copies src (and its descendants) as a new child of
// newParent (nil for a new root entry) within d, preserving every property
// except id, which is freshly allocated for every copied node (spec §4.4,
// "used when copying a file from another archive"). It returns the copied
// root.
func (d *Document) ReplicateSubtree(src *File, newParent *File) *File {
	cp := NewFile()
	cp.ID = d.NextFileID()
	cp.Properties = cloneProperty(src.Properties)
	cp.FSPath = src.FSPath
	cp.parent = newParent
	if newParent != nil {
		newParent.children = append(newParent.children, cp)
	} else {
		d.Files = append(d.Files, cp)
	}
	for _, ea := range src.EA {
		cp.EA = append(cp.EA, &ExtendedAttribute{
			ID:         d.NextFileID(),
			Properties: cloneProperty(ea.Properties),
		})
	}
	for _, child := range src.children {
		d.ReplicateSubtree(child, cp)
	}
	return cp
}

func cloneProperty(p *Property) *Property {
	cp := &Property{
		Key:       p.Key,
		Value:     p.Value,
		HasValue:  p.HasValue,
		Namespace: p.Namespace,
		Attrs:     append([]Attribute{}, p.Attrs...),
	}
	for _, c := range p.children {
		childCopy := cloneProperty(c)
		childCopy.parent = cp
		cp.children = append(cp.children, childCopy)
	}
	return cp
}

// WalkFiles performs a stable, depth-first pre-order traversal of the
// document's file forest, invoking cb with the entry's path segments
// (root-level name first) and the entry itself. This is a non-recursive, stack-based port of the
// teacher's sardata/toc LoopItems. Returning an error from cb stops the
// walk and propagates the error.
func (d *Document) WalkFiles(cb func(path []string, f *File) error) error {
	type frame struct {
		siblings []*File
		idx      int
	}
	path := []string{}
	stack := []frame{{siblings: d.Files}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.idx >= len(top.siblings) {
			stack = stack[:len(stack)-1]
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			continue
		}
		f := top.siblings[top.idx]
		top.idx++
		path = append(path, f.Name())

		if err := cb(append([]string{}, path...), f); err != nil {
			return err
		}

		if len(f.children) > 0 {
			stack = append(stack, frame{siblings: f.children})
		} else {
			path = path[:len(path)-1]
		}
	}
	return nil
}
