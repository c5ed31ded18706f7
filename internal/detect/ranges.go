package detect

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"gopkg.in/yaml.v3"
)

// ManualRange is an analyst-supplied acceptable PCI band for one section.
type ManualRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether pci lies inside the closed band.
func (m ManualRange) Contains(pci float64) bool { return pci >= m.Min && pci <= m.Max }

func (m ManualRange) String() string {
	return table.FormatFloat(m.Min) + "-" + table.FormatFloat(m.Max)
}

func (m ManualRange) validate() error {
	if m.Min > m.Max {
		return fmt.Errorf("min %s exceeds max %s", table.FormatFloat(m.Min), table.FormatFloat(m.Max))
	}
	return nil
}

// UnmarshalYAML accepts either `[min, max]` or `{min: .., max: ..}`.
func (m *ManualRange) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var pair []float64
		if err := n.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: range needs exactly two values, got %d", n.Line, len(pair))
		}
		m.Min, m.Max = pair[0], pair[1]
		return nil
	case yaml.MappingNode:
		type plain ManualRange
		var p plain
		if err := n.Decode(&p); err != nil {
			return err
		}
		*m = ManualRange(p)
		return nil
	default:
		return fmt.Errorf("line %d: range must be [min, max] or {min, max}", n.Line)
	}
}

// ManualRanges maps a section key (table.Value.Key) to its band.
type ManualRanges map[string]ManualRange

// Lookup finds the band for a section value.
func (r ManualRanges) Lookup(section table.Value) (ManualRange, bool) {
	if len(r) == 0 {
		return ManualRange{}, false
	}
	m, ok := r[section.Key()]
	return m, ok
}

// Set validates and stores a band, normalizing the key the way section
// values are keyed ("101.0" and "101" are the same section).
func (r ManualRanges) Set(section string, m ManualRange) error {
	key := SectionKey(section)
	if key == "" {
		return errors.New("section id is empty")
	}
	if err := m.validate(); err != nil {
		return fmt.Errorf("section %s: %w", key, err)
	}
	r[key] = m
	return nil
}

// SectionKey normalizes a section id typed by a user.
func SectionKey(s string) string {
	return table.Infer(s, table.NumberFormat{}).Key()
}

// ParseRanges decodes a YAML document of `section: [min, max]` entries.
func ParseRanges(data []byte) (ManualRanges, error) {
	var raw map[string]ManualRange
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ranges: %w", err)
	}
	out := make(ManualRanges, len(raw))
	for k, m := range raw {
		if err := out.Set(k, m); err != nil {
			return nil, fmt.Errorf("parse ranges: %w", err)
		}
	}
	return out, nil
}

// LoadRanges reads a YAML ranges file.
func LoadRanges(path string) (ManualRanges, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ranges: %w", err)
	}
	return ParseRanges(b)
}

// ParseRangeFlag parses "SECTION=MIN:MAX" as given on the command line.
func ParseRangeFlag(s string) (string, ManualRange, error) {
	sec, band, ok := strings.Cut(s, "=")
	if !ok {
		return "", ManualRange{}, fmt.Errorf("invalid range %q (use SECTION=MIN:MAX)", s)
	}
	lo, hi, ok := strings.Cut(band, ":")
	if !ok {
		return "", ManualRange{}, fmt.Errorf("invalid range %q (use SECTION=MIN:MAX)", s)
	}
	minV, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return "", ManualRange{}, fmt.Errorf("invalid range min in %q: %w", s, err)
	}
	maxV, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return "", ManualRange{}, fmt.Errorf("invalid range max in %q: %w", s, err)
	}
	m := ManualRange{Min: minV, Max: maxV}
	if err := m.validate(); err != nil {
		return "", ManualRange{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	return strings.TrimSpace(sec), m, nil
}
