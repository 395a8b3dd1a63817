//go:build !windows

// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata/toc"
)

// createSpecial recreates a character-special, block-special, fifo, or
// socket entry at target using mknod (spec §4.10). Sockets are recreated as
// plain fifos: a xar archive never carries a listening socket's connection
// state, only its existence.
func createSpecial(f *toc.File, target string) error {
	mode, err := modeOf(f)
	if err != nil {
		return err
	}
	switch f.Type() {
	case toc.TypeFIFO, toc.TypeSocket:
		return syscall.Mkfifo(target, mode)
	case toc.TypeCharDevice, toc.TypeBlockDevice:
		major, minor, err := deviceNumbers(f)
		if err != nil {
			return err
		}
		devType := uint32(syscall.S_IFCHR)
		if f.Type() == toc.TypeBlockDevice {
			devType = syscall.S_IFBLK
		}
		dev := unixMkdev(major, minor)
		return syscall.Mknod(target, mode|devType, int(dev))
	}
	return errors.Reason("createSpecial: unsupported type %(type)q").D("type", string(f.Type())).Err()
}

func modeOf(f *toc.File) (uint32, error) {
	modeProp, ok := toc.FindProperty(f.Properties, "mode")
	if !ok {
		return 0o644, nil
	}
	mode, err := strconv.ParseUint(modeProp.Value, 8, 32)
	if err != nil {
		return 0, errors.Annotate(err).Reason("parsing mode for %(name)q").D("name", f.Name()).Err()
	}
	return uint32(mode) & 0o7777, nil
}

func deviceNumbers(f *toc.File) (major, minor uint32, err error) {
	majorProp, ok := toc.FindProperty(f.Properties, "device/major")
	if !ok {
		return 0, 0, errors.New("device entry missing device/major")
	}
	minorProp, ok := toc.FindProperty(f.Properties, "device/minor")
	if !ok {
		return 0, 0, errors.New("device entry missing device/minor")
	}
	maj, err := strconv.ParseUint(majorProp.Value, 10, 32)
	if err != nil {
		return 0, 0, errors.Annotate(err).Reason("parsing device/major").Err()
	}
	min, err := strconv.ParseUint(minorProp.Value, 10, 32)
	if err != nil {
		return 0, 0, errors.Annotate(err).Reason("parsing device/minor").Err()
	}
	return uint32(maj), uint32(min), nil
}

// unixMkdev composes a Linux dev_t from major/minor numbers (see
// makedev(3)); extraction of device nodes is a privileged, Linux-targeted
// operation, so no portable syscall.Mkdev exists across unix variants.
func unixMkdev(major, minor uint32) uint64 {
	return uint64(minor&0xff) | uint64(major&0xfff)<<8 |
		uint64(minor&0xfff00)<<12 | uint64(major&0xfffff000)<<32
}

// applyOwnership chowns target to the file's recorded uid/gid (numeric
// mode) or the uid/gid its recorded user/group names resolve to locally
// (symbolic mode), demoting failure to a warning since it is expected when
// not running privileged (spec §7). Reports whether the handler asked to
// cancel the extraction.
func (a *Archive) applyOwnership(f *toc.File, target string) bool {
	uid, gid, ok := a.resolveOwnership(f)
	if !ok {
		return false
	}
	if err := os.Lchown(target, uid, gid); err != nil {
		return a.report(SeverityWarning, ClassArchiveExtraction, ErrorContext{File: f, Msg: "chown", Err: err})
	}
	return false
}

func (a *Archive) resolveOwnership(f *toc.File) (uid, gid int, ok bool) {
	if a.opts.ownership == OwnershipNumeric {
		uidProp, uok := toc.FindProperty(f.Properties, "uid")
		gidProp, gok := toc.FindProperty(f.Properties, "gid")
		if !uok || !gok {
			return 0, 0, false
		}
		u, err1 := strconv.Atoi(uidProp.Value)
		g, err2 := strconv.Atoi(gidProp.Value)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return u, g, true
	}

	userProp, uok := toc.FindProperty(f.Properties, "user")
	groupProp, gok := toc.FindProperty(f.Properties, "group")
	if uok {
		if u, err := user.Lookup(userProp.Value); err == nil {
			uid, _ = strconv.Atoi(u.Uid)
			if gok {
				if g, err := user.LookupGroup(groupProp.Value); err == nil {
					gid, _ = strconv.Atoi(g.Gid)
					return uid, gid, true
				}
			}
			gid, _ = strconv.Atoi(u.Gid)
			return uid, gid, true
		}
	}
	return a.resolveOwnershipNumericFallback(f)
}

// resolveOwnershipNumericFallback falls back to the stored numeric ids when
// symbolic resolution fails locally (an account that doesn't exist on this
// machine), matching original xar's "best effort" ownership behavior.
func (a *Archive) resolveOwnershipNumericFallback(f *toc.File) (uid, gid int, ok bool) {
	uidProp, uok := toc.FindProperty(f.Properties, "uid")
	gidProp, gok := toc.FindProperty(f.Properties, "gid")
	if !uok || !gok {
		return 0, 0, false
	}
	u, err1 := strconv.Atoi(uidProp.Value)
	g, err2 := strconv.Atoi(gidProp.Value)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return u, g, true
}
