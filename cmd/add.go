package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pavecheck-cli/internal/project"
	"github.com/spf13/cobra"
)

var (
	addProjectName string
	addRole        string
	addLoader      loaderFlags
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Register a survey or maintenance file with a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		if addProjectName == "" {
			return fmt.Errorf("--project is required")
		}
		role, err := project.ParseRole(addRole)
		if err != nil {
			return err
		}
		opt, err := addLoader.options()
		if err != nil {
			return err
		}
		p, err := loadProjectByName(addProjectName)
		if err != nil {
			return err
		}
		d, err := p.AddDataset(file, role, opt)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Dataset added: %s as %s (%d rows, %d columns)\n", d.Name, d.Role, d.Rows, len(d.Columns))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addProjectName, "project", "p", "", "project name")
	addCmd.Flags().StringVar(&addRole, "role", string(project.RoleCurrent), "dataset role: current|historical|maintenance")
	addLoader.register(addCmd)
}
