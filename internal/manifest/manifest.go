// Package manifest implements the file-manifest reconciliation engine that
// places generated bundle files into the host project. The generation service
// emits a filelist.json describing every file in the bundle; this package
// decodes both on-the-wire shapes, normalizes them to explicit
// source/destination entries, and copies or skips each entry against the
// local tree.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrManifestFormat is returned when filelist.json cannot be decoded. A bad
// manifest is fatal for the whole run; per-entry problems are not.
var ErrManifestFormat = errors.New("invalid manifest format")

// DefaultCategory groups entries from the legacy flat-array manifest shape,
// which carries no category keys.
const DefaultCategory = "files"

// Entry is one normalized file operation. SourcePath is relative to the
// extracted bundle root, DestinationPath relative to the project root.
type Entry struct {
	Category        string
	SourcePath      string
	DestinationPath string
	Replace         bool

	// InvalidReason is set during decoding when the wire entry is missing
	// required fields or points outside the roots. Invalid entries are
	// carried through reconciliation so they show up in the report, but
	// no filesystem work happens for them.
	InvalidReason string
}

// Invalid reports whether the entry was rejected during normalization.
func (e Entry) Invalid() bool { return e.InvalidReason != "" }

// wireEntry accepts both manifest generations: the legacy shape
// {path, replace} where the destination mirrors the bundle path, and the
// secure shape {path|source_path, destination|destination_path, replace}
// where the destination is always explicit.
type wireEntry struct {
	Path            string `json:"path"`
	SourcePath      string `json:"source_path"`
	Destination     string `json:"destination"`
	DestinationPath string `json:"destination_path"`
	Replace         *bool  `json:"replace"`
}

// Decode parses filelist.json. The secure shape is an object of
// category -> entries; the legacy shape is a flat array. Category order and
// entry order are preserved exactly as they appear in the document so that
// report statistics are deterministic.
func Decode(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFormat, err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value must be an array or object", ErrManifestFormat)
	}

	switch delim {
	case '[':
		var wire []wireEntry
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrManifestFormat, err)
		}
		return normalize(DefaultCategory, wire, true), nil

	case '{':
		var entries []Entry
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrManifestFormat, err)
			}
			category := keyTok.(string)

			var wire []wireEntry
			if err := dec.Decode(&wire); err != nil {
				return nil, fmt.Errorf("%w: category %q: %v", ErrManifestFormat, category, err)
			}
			entries = append(entries, normalize(category, wire, false)...)
		}
		return entries, nil

	default:
		return nil, fmt.Errorf("%w: top-level value must be an array or object", ErrManifestFormat)
	}
}

// normalize converts wire entries to explicit form. Destinations are never
// derived inside the reconciliation loop; the legacy path-mirroring rule is
// applied here, once, at the boundary.
func normalize(category string, wire []wireEntry, legacy bool) []Entry {
	entries := make([]Entry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, normalizeOne(category, w, legacy))
	}
	return entries
}

func normalizeOne(category string, w wireEntry, legacy bool) Entry {
	e := Entry{Category: category}

	e.SourcePath = w.SourcePath
	if e.SourcePath == "" {
		e.SourcePath = w.Path
	}
	if e.SourcePath == "" {
		e.InvalidReason = "missing source path"
		return e
	}

	switch {
	case w.DestinationPath != "":
		e.DestinationPath = w.DestinationPath
	case w.Destination != "":
		e.DestinationPath = w.Destination
	case legacy:
		// Legacy bundles mirror the bundle layout into the project tree.
		e.DestinationPath = e.SourcePath
	default:
		e.InvalidReason = "missing destination path"
		return e
	}

	if legacy {
		// The legacy shape treats a missing replace flag as invalid
		// rather than guessing a default.
		if w.Replace == nil {
			e.InvalidReason = "missing replace flag"
			return e
		}
		e.Replace = *w.Replace
	} else {
		// The secure shape defaults to replace when unspecified.
		e.Replace = w.Replace == nil || *w.Replace
	}

	if !safeRelPath(e.SourcePath) {
		e.InvalidReason = fmt.Sprintf("unsafe source path %q", e.SourcePath)
		return e
	}
	if !safeRelPath(e.DestinationPath) {
		e.InvalidReason = fmt.Sprintf("unsafe destination path %q", e.DestinationPath)
		return e
	}
	return e
}

// safeRelPath rejects absolute paths and paths that escape their root.
func safeRelPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
