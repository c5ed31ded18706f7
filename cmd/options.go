package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/spf13/cobra"
)

// loaderFlags are the file-reading flags shared by every command that loads surveys.
type loaderFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	encoding   string
	sheetName  string
	sheetIndex int
}

func (lf *loaderFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.encoding, "encoding", "", "CSV text encoding: utf-8|windows-1252|iso-8859-1|windows-1251 (default from config)")
	c.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (lf *loaderFlags) options() (parser.Options, error) {
	opt := parser.Options{SheetName: lf.sheetName, SheetIndex: lf.sheetIndex}
	switch lf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", lf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.Number.DecimalSeparator = ','
	case ".", "dot":
		opt.Number.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case ",":
		opt.Number.ThousandsSeparator = ','
	case ".":
		opt.Number.ThousandsSeparator = '.'
	case "space", " ":
		opt.Number.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}
	opt.Encoding = lf.encoding
	if opt.Encoding == "" {
		opt.Encoding = settings().CSVEncoding
	}
	if !parser.ValidEncoding(opt.Encoding) {
		return opt, fmt.Errorf("unsupported --encoding: %s", opt.Encoding)
	}
	return opt, nil
}

// expandFiles resolves glob patterns, keeping literal paths that exist and
// dropping duplicates while preserving argument order.
func expandFiles(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files
}
