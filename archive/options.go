// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"strconv"

	"github.com/luci/luci-go/common/errors"
	"github.com/mackyle/xar/xardata"
)

// Option names, exactly the closed enumeration spec §6 recognizes. SetOption
// rejects any other name (spec §9 "Option bag").
const (
	OptTOCCksum          = "toc-cksum"
	OptFileCksum         = "file-chksum"
	OptCompression       = "compression"
	OptCompressionArg    = "compression-arg"
	OptRsize             = "rsize"
	OptCoalesce          = "coalesce"
	OptLinksame          = "linksame"
	OptPropInclude       = "prop-include"
	OptPropExclude       = "prop-exclude"
	OptSavesuid          = "savesuid"
	OptRecompress        = "recompress"
	OptExtractStdout     = "extract-stdout"
	OptStripComponents   = "strip-components"
	OptOwnership         = "ownership"
	OptRFC6713Format     = "rfc6713-format"
	OptXARLibraryVersion = "xar-library-version"
)

// LibraryVersion is the read-only value reported for xar-library-version.
const LibraryVersion = "0x00000001"

// OwnershipMode selects which identity extraction applies to a file (spec
// §6 "ownership").
type OwnershipMode string

const (
	OwnershipSymbolic OwnershipMode = "symbolic"
	OwnershipNumeric  OwnershipMode = "numeric"
)

// options is the archive's fully-typed option bag. Every field here
// corresponds to exactly one of the Opt* names above; SetOption/GetOption
// translate between the string wire form and these typed fields.
type options struct {
	tocCksum        xardata.DigestName
	fileCksum       xardata.DigestName
	compression     xardata.Codec
	compressionArg  int
	rsize           int
	coalesce        bool
	linksame        bool
	propInclude     []string
	propExclude     []string
	savesuid        bool
	recompress      bool
	extractStdout   bool
	stripComponents int
	ownership       OwnershipMode
	rfc6713Format   bool

	handler ErrorHandler
}

// minRsize is the floor spec §6 implies ("rsize ... clamped to >= minimum").
const minRsize = 4096

// defaultOptions returns the option bag new archives start with, matching
// original xar's compiled-in defaults.
func defaultOptions() options {
	return options{
		tocCksum:    xardata.DigestSHA1,
		fileCksum:   xardata.DigestSHA1,
		compression: xardata.CodecGzip,
		rsize:       minRsize * 8,
		ownership:   OwnershipSymbolic,
	}
}

// SetOption sets a named option to value, validating both against the
// closed set spec §6 enumerates. Returns *OptionMisuseError for an unknown
// name, an unrecognized value, or a toc-cksum change after the first file
// has been added (I7).
func (a *Archive) SetOption(name, value string) error {
	switch name {
	case OptTOCCksum:
		if len(a.doc.Files) > 0 || len(a.reservations) > 0 {
			return &OptionMisuseError{Option: name, Reason: "cannot change toc-cksum once files or signatures have been added (I7)"}
		}
		d := xardata.DigestName(value)
		if !xardata.ValidDigestName(d) {
			return &OptionMisuseError{Option: name, Reason: "unknown digest " + value}
		}
		a.opts.tocCksum = d
		if err := a.resetHeapForNewDigest(); err != nil {
			return err
		}

	case OptFileCksum:
		d := xardata.DigestName(value)
		if !xardata.ValidDigestName(d) {
			return &OptionMisuseError{Option: name, Reason: "unknown digest " + value}
		}
		a.opts.fileCksum = d

	case OptCompression:
		c, ok := codecByOptionValue[value]
		if !ok {
			return &OptionMisuseError{Option: name, Reason: "unknown compression " + value}
		}
		a.opts.compression = c

	case OptCompressionArg:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: "not an integer: " + value}
		}
		a.opts.compressionArg = n

	case OptRsize:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: "not an integer: " + value}
		}
		if n < minRsize {
			n = minRsize
		}
		a.opts.rsize = n

	case OptCoalesce:
		b, err := parseBool(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: err.Error()}
		}
		a.opts.coalesce = b

	case OptLinksame:
		b, err := parseBool(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: err.Error()}
		}
		a.opts.linksame = b

	case OptPropInclude:
		a.opts.propInclude = append(a.opts.propInclude, value)

	case OptPropExclude:
		a.opts.propExclude = append(a.opts.propExclude, value)

	case OptSavesuid:
		b, err := parseBool(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: err.Error()}
		}
		a.opts.savesuid = b

	case OptRecompress:
		b, err := parseBool(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: err.Error()}
		}
		a.opts.recompress = b

	case OptExtractStdout:
		b, err := parseBool(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: err.Error()}
		}
		a.opts.extractStdout = b

	case OptStripComponents:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return &OptionMisuseError{Option: name, Reason: "must be a non-negative integer"}
		}
		a.opts.stripComponents = n

	case OptOwnership:
		switch OwnershipMode(value) {
		case OwnershipSymbolic, OwnershipNumeric:
			a.opts.ownership = OwnershipMode(value)
		default:
			return &OptionMisuseError{Option: name, Reason: "must be symbolic or numeric"}
		}

	case OptRFC6713Format:
		b, err := parseBool(value)
		if err != nil {
			return &OptionMisuseError{Option: name, Reason: err.Error()}
		}
		a.opts.rfc6713Format = b

	case OptXARLibraryVersion:
		return &OptionMisuseError{Option: name, Reason: "read-only"}

	default:
		return &OptionMisuseError{Option: name, Reason: "unrecognized option"}
	}
	return nil
}

// GetOption returns the current string value of a named option.
func (a *Archive) GetOption(name string) (string, error) {
	switch name {
	case OptTOCCksum:
		return string(a.opts.tocCksum), nil
	case OptFileCksum:
		return string(a.opts.fileCksum), nil
	case OptCompression:
		return optionValueByCodec[a.opts.compression], nil
	case OptCompressionArg:
		return strconv.Itoa(a.opts.compressionArg), nil
	case OptRsize:
		return strconv.Itoa(a.opts.rsize), nil
	case OptCoalesce:
		return strconv.FormatBool(a.opts.coalesce), nil
	case OptLinksame:
		return strconv.FormatBool(a.opts.linksame), nil
	case OptSavesuid:
		return strconv.FormatBool(a.opts.savesuid), nil
	case OptRecompress:
		return strconv.FormatBool(a.opts.recompress), nil
	case OptExtractStdout:
		return strconv.FormatBool(a.opts.extractStdout), nil
	case OptStripComponents:
		return strconv.Itoa(a.opts.stripComponents), nil
	case OptOwnership:
		return string(a.opts.ownership), nil
	case OptRFC6713Format:
		return strconv.FormatBool(a.opts.rfc6713Format), nil
	case OptXARLibraryVersion:
		return LibraryVersion, nil
	}
	return "", &OptionMisuseError{Option: name, Reason: "unrecognized option"}
}

// SetErrorHandler installs the callback invoked for every warning/error the
// archive reports (spec §6 "Error callback contract").
func (a *Archive) SetErrorHandler(h ErrorHandler) { a.opts.handler = h }

var codecByOptionValue = map[string]xardata.Codec{
	"none":  xardata.CodecNone,
	"gzip":  xardata.CodecGzip,
	"bzip2": xardata.CodecBzip2,
	"lzma":  xardata.CodecLZMA,
	"xz":    xardata.CodecXZ,
}

var optionValueByCodec = map[xardata.Codec]string{
	xardata.CodecNone:  "none",
	xardata.CodecGzip:  "gzip",
	xardata.CodecBzip2: "bzip2",
	xardata.CodecLZMA:  "lzma",
	xardata.CodecXZ:    "xz",
}

func parseBool(value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errors.Reason("must be true or false, got %(value)q").D("value", value).Err()
}
