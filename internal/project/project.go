package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/KaramelBytes/pavecheck-cli/internal/utils"
	"github.com/google/uuid"
)

// FileName is the project manifest stored in every project directory.
const FileName = "project.json"

// Project represents a pavecheck survey project persisted on disk.
type Project struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Datasets    map[string]*Dataset `json:"datasets"`
	Ranges      detect.ManualRanges `json:"manual_ranges,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*Dataset),
		Ranges:      make(detect.ManualRanges),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*Dataset)
	}
	if p.Ranges == nil {
		p.Ranges = make(detect.ManualRanges)
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureProjectDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, FileName), data)
}

// AddDataset loads a survey file to validate it and registers it under role.
func (p *Project) AddDataset(path string, role Role, opt parser.Options) (*Dataset, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	ds, err := parser.LoadFile(abs, opt)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	for _, d := range p.Datasets {
		if d.Path == abs && d.Role == role && d.Sheet == opt.SheetName {
			return nil, fmt.Errorf("%s is already registered as %s", filepath.Base(abs), role)
		}
	}
	d := &Dataset{
		ID:      uuid.NewString(),
		Role:    role,
		Path:    abs,
		Name:    filepath.Base(abs),
		Sheet:   opt.SheetName,
		Columns: ds.Columns,
		Rows:    ds.Len(),
		AddedAt: time.Now(),
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*Dataset)
	}
	p.Datasets[d.ID] = d
	p.UpdatedAt = time.Now()
	return d, nil
}

// RemoveDataset drops a registration by id or by file name.
func (p *Project) RemoveDataset(idOrName string) bool {
	for id, d := range p.Datasets {
		if id == idOrName || d.Name == idOrName {
			delete(p.Datasets, id)
			p.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// DatasetsByRole returns the datasets of one role in registration order.
func (p *Project) DatasetsByRole(role Role) []*Dataset {
	var out []*Dataset
	for _, d := range p.Datasets {
		if d.Role == role {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// SetRange stores the analyst's acceptable PCI band for a section.
func (p *Project) SetRange(section string, minPCI, maxPCI float64) error {
	if p.Ranges == nil {
		p.Ranges = make(detect.ManualRanges)
	}
	if err := p.Ranges.Set(section, detect.ManualRange{Min: minPCI, Max: maxPCI}); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	return nil
}

// ClearRange removes a section's band and reports whether one existed.
func (p *Project) ClearRange(section string) bool {
	key := detect.SectionKey(section)
	if _, ok := p.Ranges[key]; !ok {
		return false
	}
	delete(p.Ranges, key)
	p.UpdatedAt = time.Now()
	return true
}

// Input loads every registered dataset, merging the files of each role,
// and returns them with the project's manual ranges.
func (p *Project) Input(opt parser.Options) (detect.Input, error) {
	in := detect.Input{ManualRanges: p.Ranges}
	for _, role := range Roles {
		ds, err := p.loadRole(role, opt)
		if err != nil {
			return detect.Input{}, fmt.Errorf("%s data: %w", role, err)
		}
		switch role {
		case RoleCurrent:
			in.Current = ds
		case RoleHistorical:
			in.Historical = ds
		case RoleMaintenance:
			in.Maintenance = ds
		}
	}
	return in, nil
}

func (p *Project) loadRole(role Role, opt parser.Options) (*table.Dataset, error) {
	sets := p.DatasetsByRole(role)
	if len(sets) == 0 {
		return nil, nil
	}
	var paths []string
	sheetless := true
	for _, d := range sets {
		paths = append(paths, d.Path)
		if d.Sheet != "" {
			sheetless = false
		}
	}
	if sheetless {
		return parser.LoadFiles(paths, opt)
	}
	// per-file sheet selection
	var out *table.Dataset
	var lastErr error
	for _, d := range sets {
		o := opt
		o.SheetName = d.Sheet
		ds, err := parser.LoadFiles([]string{d.Path}, o)
		if err != nil {
			lastErr = err
			continue
		}
		out = table.Merge(out, ds)
	}
	if out == nil {
		return nil, lastErr
	}
	return out, nil
}

// Summary renders a short human-readable description.
func (p *Project) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	for _, role := range Roles {
		sets := p.DatasetsByRole(role)
		fmt.Fprintf(&b, "%s: %d dataset(s)\n", role, len(sets))
		for _, d := range sets {
			fmt.Fprintf(&b, "  - %s (%d rows, %d columns) [%s]\n", d.Name, d.Rows, len(d.Columns), d.ID)
		}
	}
	if len(p.Ranges) > 0 {
		keys := make([]string, 0, len(p.Ranges))
		for k := range p.Ranges {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Manual ranges:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s: %s\n", k, p.Ranges[k])
		}
	}
	return b.String()
}
