package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/pavecheck-cli/internal/config"
	"github.com/KaramelBytes/pavecheck-cli/internal/export"
	"github.com/KaramelBytes/pavecheck-cli/internal/logging"
	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set pavecheck configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		th := c.Thresholds()
		fmt.Printf("iqr_multiplier: %s\n", table.FormatFloat(th.IQRMultiplier))
		fmt.Printf("extended_iqr_multiplier: %s\n", table.FormatFloat(th.ExtendedIQRMultiplier))
		fmt.Printf("max_deterioration_rate: %s\n", table.FormatFloat(th.MaxDeteriorationRate))
		fmt.Printf("max_improvement_rate: %s\n", table.FormatFloat(th.MaxImprovementRate))
		fmt.Printf("maintenance_window_years: %s\n", table.FormatFloat(th.MaintenanceWindowYears))
		fmt.Printf("expected_pci_after_treatment: %s\n", table.FormatFloat(th.ExpectedPCIAfterTreatment))
		fmt.Printf("projects_dir: %s\n", c.ProjectsDir)
		if c.HistoryDB != "" {
			fmt.Printf("history_db: %s\n", c.HistoryDB)
		}
		fmt.Printf("default_format: %s\n", c.DefaultFormat)
		fmt.Printf("csv_encoding: %s\n", c.CSVEncoding)
		fmt.Printf("log_level: %s\n", c.LogLevel)
		fmt.Printf("log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if err := validateSetting(key, val); err != nil {
			return err
		}
		// reload so --log-level/--log-format overrides are not persisted
		c, err := cfgpkg.Read(cfgFile)
		if err != nil {
			return err
		}
		if err := c.Set(key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w (fix it with 'pavecheck config set')", err)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Println("Saved config")
		return nil
	},
}

func validateSetting(key, val string) error {
	switch key {
	case "default_format":
		_, err := export.ParseFormat(val)
		return err
	case "csv_encoding":
		if !parser.ValidEncoding(val) {
			return fmt.Errorf("invalid csv_encoding: %s (use utf-8, windows-1252, iso-8859-1 or windows-1251)", val)
		}
	case "log_level":
		_, err := logging.ParseLevel(val)
		return err
	case "log_format":
		if val != "text" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
