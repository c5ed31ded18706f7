package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/KaramelBytes/pavecheck-cli/internal/logging"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// Options controls how survey files are read.
type Options struct {
	// Delimiter for CSV. If 0, .tsv files use a tab and others are sniffed
	// among ',', ';' and '\t' from the header line.
	Delimiter rune
	// Encoding of CSV bytes: utf-8 (default), windows-1252, iso-8859-1, windows-1251.
	Encoding string
	// Number locale; zero separators auto-detect per value.
	Number table.NumberFormat
	// SheetName selects an XLSX sheet by name (case-insensitive).
	SheetName string
	// SheetIndex selects an XLSX sheet by 1-based position when SheetName is empty.
	SheetIndex int
	// Logger receives skipped-file warnings from LoadFiles.
	Logger *slog.Logger
}

// Loader reads one tabular file format into a Dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*table.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a file format no loader accepts.
var ErrUnsupported = errors.New("unsupported file format")

// LoadFile selects a loader by file extension and reads path.
func LoadFile(path string, opt Options) (*table.Dataset, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

// LoadFiles loads every path and merges them into one dataset (see
// table.Merge). Files that fail to load are logged and skipped; if none
// loads, the last error is returned. No paths yields (nil, nil).
func LoadFiles(paths []string, opt Options) (*table.Dataset, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	log := opt.Logger
	if log == nil {
		log = logging.New("parser")
	}
	var out *table.Dataset
	var lastErr error
	loaded := 0
	for _, p := range paths {
		ds, err := LoadFile(p, opt)
		if err != nil {
			log.Warn("skipping file", "path", p, "err", err)
			lastErr = err
			continue
		}
		loaded++
		if out == nil {
			out = ds
			continue
		}
		out = table.Merge(out, ds)
	}
	if loaded == 0 {
		return nil, lastErr
	}
	return out, nil
}
