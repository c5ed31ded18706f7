package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/pavecheck-cli/internal/project"
	"github.com/spf13/cobra"
)

var (
	listProjects bool
	listDatasets bool
	listProjName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects or a project's datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listProjects == listDatasets { // either both true or both false
			return fmt.Errorf("specify exactly one of --projects or --datasets")
		}
		if listProjects {
			return listAllProjects()
		}
		if listProjName == "" {
			return fmt.Errorf("--project is required when using --datasets")
		}
		p, err := loadProjectByName(listProjName)
		if err != nil {
			return err
		}
		if len(p.Datasets) == 0 {
			fmt.Println("(no datasets)")
			return nil
		}
		for _, role := range project.Roles {
			for _, d := range p.DatasetsByRole(role) {
				fmt.Printf("- %s: %s [%s] %d rows\n", d.ID, d.Name, d.Role, d.Rows)
			}
		}
		return nil
	},
}

func listAllProjects() error {
	root, err := defaultProjectsDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		pj := filepath.Join(root, e.Name(), project.FileName)
		if _, err := os.Stat(pj); err == nil {
			fmt.Printf("- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("(no projects)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "list projects")
	listCmd.Flags().BoolVar(&listDatasets, "datasets", false, "list datasets in a project")
	listCmd.Flags().StringVarP(&listProjName, "project", "p", "", "project name for --datasets")
}
