package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a single cell.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "numeric"
	case KindText:
		return "text"
	case KindDate:
		return "datetime"
	case KindBool:
		return "boolean"
	default:
		return "missing"
	}
}

// Value is one typed cell of a Dataset. The zero Value is missing.
type Value struct {
	Kind Kind
	num  float64
	str  string
	t    time.Time
	b    bool
}

// ErrMissing is returned when a typed accessor is called on a missing value.
var ErrMissing = errors.New("missing value")

func Missing() Value         { return Value{} }
func Number(f float64) Value { return Value{Kind: KindNumber, num: f} }
func Text(s string) Value    { return Value{Kind: KindText, str: s} }
func Date(t time.Time) Value { return Value{Kind: KindDate, t: t} }
func Bool(b bool) Value      { return Value{Kind: KindBool, b: b} }

// IsMissing reports whether the cell was empty.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Float returns the numeric content of v. Only numbers report ok.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Time interprets v as a calendar date. Text values are parsed with the
// layouts known to ParseTime.
func (v Value) Time() (time.Time, error) {
	switch v.Kind {
	case KindDate:
		return v.t, nil
	case KindText:
		if t, ok := ParseTime(v.str); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", v.str)
	case KindMissing:
		return time.Time{}, ErrMissing
	default:
		return time.Time{}, fmt.Errorf("cannot interpret %s value %s as a date", v.Kind, v.String())
	}
}

// String renders v for reports.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return FormatFloat(v.num)
	case KindText:
		return v.str
	case KindDate:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Key is the canonical identity used to match sections across datasets.
func (v Value) Key() string { return strings.TrimSpace(v.String()) }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(FormatFloat(v.num)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindMissing:
		return []byte("null"), nil
	default:
		return json.Marshal(v.String())
	}
}

// FormatFloat prints f in its shortest round-trip form (70, 15.5).
func FormatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// NumberFormat fixes locale separators. Zero fields mean auto-detect per value.
type NumberFormat struct {
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// Infer converts a raw cell into a typed Value: empty is missing, then number,
// date, boolean, and text as the fallback. Zero-padded digit strings ("007")
// stay text so identifiers keep their spelling.
func Infer(raw string, nf NumberFormat) Value {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return Missing()
	}
	if zeroPadded(s) {
		return Text(s)
	}
	if f, ok := ParseNumber(s, nf); ok {
		return Number(f)
	}
	if t, ok := ParseTime(s); ok {
		return Date(t)
	}
	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return Text(s)
}

// zeroPadded reports whether s is two or more digits starting with '0'.
func zeroPadded(s string) bool {
	if len(s) < 2 || s[0] != '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"1/2/2006", "01-02-06", "1/2/06", "2006-01-02T15:04:05",
}

// ParseTime tries the supported date layouts in order.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses s honoring locale separators; '%' is stripped.
func ParseNumber(s string, nf NumberFormat) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := nf.DecimalSeparator
	thou := nf.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
