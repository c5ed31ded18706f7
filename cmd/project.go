package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	pmProject string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage per-project settings",
}

var projectSetRangeCmd = &cobra.Command{
	Use:   "set-range <section> <min> <max>",
	Short: "Set the acceptable PCI range for a section",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		minPCI, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid min %q: %w", args[1], err)
		}
		maxPCI, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid max %q: %w", args[2], err)
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if err := p.SetRange(args[0], minPCI, maxPCI); err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Set range for section %s: %s-%s\n", args[0], args[1], args[2])
		return nil
	},
}

var projectClearRangeCmd = &cobra.Command{
	Use:   "clear-range <section>",
	Short: "Remove a section's manual PCI range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if !p.ClearRange(args[0]) {
			return fmt.Errorf("section %s has no manual range", args[0])
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Cleared range for section %s\n", args[0])
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a project's datasets and manual ranges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		fmt.Print(p.Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSetRangeCmd, projectClearRangeCmd, projectShowCmd)
	projectCmd.PersistentFlags().StringVarP(&pmProject, "project", "p", "", "project name")
}
