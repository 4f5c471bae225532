// Package datafile reads and writes the HistoryDocument to disk, either as a
// script that assigns the document to a global for the dashboard page, or as
// plain JSON.
package datafile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
	"github.com/benchtrack/infra/go/util"
)

// ScriptPrefix precedes the JSON document in Script format files.
const ScriptPrefix = "window.BENCHMARK_DATA = "

// Format of a history file on disk.
type Format int

const (
	// Script is ScriptPrefix followed by JSON, loadable by a <script> tag.
	Script Format = iota

	// JSON is a bare JSON document.
	JSON
)

// StoreCorruptionError means an existing history file could not be parsed.
type StoreCorruptionError struct {
	Path string
	Err  error
}

func (e *StoreCorruptionError) Error() string {
	return "history file " + e.Path + " is corrupt: " + e.Err.Error()
}

func (e *StoreCorruptionError) Unwrap() error {
	return e.Err
}

// Encode serializes doc, indented by two spaces.
func Encode(doc *types.HistoryDocument, format Format) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, skerr.Wrapf(err, "encoding history document")
	}
	if format == Script {
		return append([]byte(ScriptPrefix), b...), nil
	}
	return b, nil
}

// Decode parses the output of Encode.
func Decode(b []byte, format Format) (*types.HistoryDocument, error) {
	if format == Script {
		if !bytes.HasPrefix(b, []byte(ScriptPrefix)) {
			return nil, skerr.Fmt("missing %q prefix", ScriptPrefix)
		}
		b = b[len(ScriptPrefix):]
	}
	doc := types.NewHistoryDocument()
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, skerr.Wrapf(err, "decoding history document")
	}
	if doc.Entries == nil {
		doc.Entries = map[string]types.Suites{}
	}
	for name, suites := range doc.Entries {
		for i, s := range suites {
			if s == nil {
				return nil, skerr.Fmt("entry %q has a null suite at index %d", name, i)
			}
		}
	}
	return doc, nil
}

// Read loads the document at path. A missing file returns an error for
// which errors.Is(err, os.ErrNotExist) is true, an unparseable one returns a
// *StoreCorruptionError.
func Read(path string, format Format) (*types.HistoryDocument, error) {
	var doc *types.HistoryDocument
	err := util.WithReadFile(path, func(r io.Reader) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return skerr.Wrap(err)
		}
		doc, err = Decode(b, format)
		if err != nil {
			return &StoreCorruptionError{Path: path, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Load is like Read but never fails. A missing or corrupt file is logged and
// an empty document is returned in its place.
func Load(path string, format Format) *types.HistoryDocument {
	doc, err := Read(path, format)
	if err == nil {
		sklog.Debugf("Loaded %s", path)
		return doc
	}
	var corrupt *StoreCorruptionError
	if errors.As(err, &corrupt) {
		sklog.Warningf("Using empty default: %s", err)
	} else if errors.Is(err, os.ErrNotExist) {
		sklog.Infof("Could not find %s. Using empty default", path)
	} else {
		sklog.Warningf("Could not read %s. Using empty default: %s", path, err)
	}
	return types.NewHistoryDocument()
}

// Store writes doc to path, creating the parent directory if needed.
func Store(path string, doc *types.HistoryDocument, format Format) error {
	b, err := Encode(doc, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return skerr.Wrapf(err, "creating directory for %s", path)
	}
	if err := util.WithWriteFile(path, func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	}); err != nil {
		return skerr.Wrapf(err, "could not store benchmark data at %s", path)
	}
	sklog.Debugf("Overwrote %s for adding new data", path)
	return nil
}
