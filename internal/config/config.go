package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Rule thresholds
	IQRMultiplier             float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier"`
	ExtendedIQRMultiplier     float64 `mapstructure:"extended_iqr_multiplier" yaml:"extended_iqr_multiplier"`
	MaxDeteriorationRate      float64 `mapstructure:"max_deterioration_rate" yaml:"max_deterioration_rate"`
	MaxImprovementRate        float64 `mapstructure:"max_improvement_rate" yaml:"max_improvement_rate"`
	MaintenanceWindowYears    float64 `mapstructure:"maintenance_window_years" yaml:"maintenance_window_years"`
	ExpectedPCIAfterTreatment float64 `mapstructure:"expected_pci_after_treatment" yaml:"expected_pci_after_treatment"`

	ProjectsDir   string `mapstructure:"projects_dir" yaml:"projects_dir"`
	HistoryDB     string `mapstructure:"history_db" yaml:"history_db"`
	DefaultFormat string `mapstructure:"default_format" yaml:"default_format"`
	CSVEncoding   string `mapstructure:"csv_encoding" yaml:"csv_encoding"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Thresholds converts the configured rule constants for the detector.
func (c *Global) Thresholds() detect.Thresholds {
	t := detect.DefaultThresholds()
	t.IQRMultiplier = c.IQRMultiplier
	t.ExtendedIQRMultiplier = c.ExtendedIQRMultiplier
	t.MaxDeteriorationRate = c.MaxDeteriorationRate
	t.MaxImprovementRate = c.MaxImprovementRate
	t.MaintenanceWindowYears = c.MaintenanceWindowYears
	t.ExpectedPCIAfterTreatment = c.ExpectedPCIAfterTreatment
	return t
}

// Dir returns ~/.pavecheck.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".pavecheck"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.pavecheck/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := detect.DefaultThresholds()
	v.SetDefault("iqr_multiplier", d.IQRMultiplier)
	v.SetDefault("extended_iqr_multiplier", d.ExtendedIQRMultiplier)
	v.SetDefault("max_deterioration_rate", d.MaxDeteriorationRate)
	v.SetDefault("max_improvement_rate", d.MaxImprovementRate)
	v.SetDefault("maintenance_window_years", d.MaintenanceWindowYears)
	v.SetDefault("expected_pci_after_treatment", d.ExpectedPCIAfterTreatment)
	v.SetDefault("projects_dir", "")
	v.SetDefault("history_db", "")
	v.SetDefault("default_format", "markdown")
	v.SetDefault("csv_encoding", "utf-8")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load loads configuration from file, env, and defaults and validates it.
// Precedence: env > config file (cfgFile or ~/.pavecheck/config.yaml) > defaults.
func Load(cfgFile string) (*Global, error) {
	c, err := Read(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Read is Load without validation, so an invalid file can still be edited.
func Read(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PAVECHECK")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ProjectsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.ProjectsDir = filepath.Join(dir, "projects")
	}
	return &c, nil
}

// Keys lists the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(c *Global, v string) error{
	"iqr_multiplier":               floatSetter(positive, func(c *Global) *float64 { return &c.IQRMultiplier }),
	"extended_iqr_multiplier":      floatSetter(positive, func(c *Global) *float64 { return &c.ExtendedIQRMultiplier }),
	"max_deterioration_rate":       floatSetter(positive, func(c *Global) *float64 { return &c.MaxDeteriorationRate }),
	"max_improvement_rate":         floatSetter(negative, func(c *Global) *float64 { return &c.MaxImprovementRate }),
	"maintenance_window_years":     floatSetter(positive, func(c *Global) *float64 { return &c.MaintenanceWindowYears }),
	"expected_pci_after_treatment": floatSetter(positive, func(c *Global) *float64 { return &c.ExpectedPCIAfterTreatment }),
	"projects_dir":                 stringSetter(func(c *Global) *string { return &c.ProjectsDir }),
	"history_db":                   stringSetter(func(c *Global) *string { return &c.HistoryDB }),
	"default_format":               stringSetter(func(c *Global) *string { return &c.DefaultFormat }),
	"csv_encoding":                 stringSetter(func(c *Global) *string { return &c.CSVEncoding }),
	"log_level":                    stringSetter(func(c *Global) *string { return &c.LogLevel }),
	"log_format":                   stringSetter(func(c *Global) *string { return &c.LogFormat }),
}

// Validate checks the rule thresholds. The detector treats a non-positive
// multiplier, rate, window or expected PCI and a non-negative improvement
// rate as unset, so such values are rejected here rather than ignored.
func (c *Global) Validate() error {
	checks := []struct {
		key   string
		value float64
		check func(float64) error
	}{
		{"iqr_multiplier", c.IQRMultiplier, positive},
		{"extended_iqr_multiplier", c.ExtendedIQRMultiplier, positive},
		{"max_deterioration_rate", c.MaxDeteriorationRate, positive},
		{"max_improvement_rate", c.MaxImprovementRate, negative},
		{"maintenance_window_years", c.MaintenanceWindowYears, positive},
		{"expected_pci_after_treatment", c.ExpectedPCIAfterTreatment, positive},
	}
	for _, ch := range checks {
		if err := ch.check(ch.value); err != nil {
			return fmt.Errorf("%s: %w", ch.key, err)
		}
	}
	return nil
}

func positive(f float64) error {
	if f <= 0 {
		return fmt.Errorf("must be greater than 0, got %s", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

// negative guards max_improvement_rate, the annual PCI change (a gain is
// negative) below which an improvement needs a maintenance record.
func negative(f float64) error {
	if f >= 0 {
		return fmt.Errorf("must be negative (e.g. -5 flags gains above 5 points/year), got %s", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

// Set assigns one key from its string form.
func (c *Global) Set(key, value string) error {
	set, ok := setters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(c, value)
}

func floatSetter(check func(float64) error, field func(*Global) *float64) func(*Global, string) error {
	return func(c *Global, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", v, err)
		}
		if err := check(f); err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func stringSetter(field func(*Global) *string) func(*Global, string) error {
	return func(c *Global, v string) error {
		*field(c) = strings.TrimSpace(v)
		return nil
	}
}
