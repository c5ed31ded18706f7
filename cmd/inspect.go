package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/spf13/cobra"
)

var inspectLoader loaderFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show how a survey file is read: column types and resolved roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := inspectLoader.options()
		if err != nil {
			return err
		}
		ds, err := parser.LoadFile(args[0], opt)
		if err != nil {
			return err
		}
		fmt.Print(inspectMarkdown(ds))
		return nil
	},
}

func inspectMarkdown(ds *table.Dataset) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	fmt.Fprintf(&b, "Name: %s\n", ds.Name)
	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n", ds.Len(), len(ds.Columns))

	b.WriteString("\n[COLUMNS]\n")
	for _, p := range table.Profile(ds) {
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %d, unique %d", p.Name, p.Kind, p.NonNull, p.Missing, p.Unique)
		if p.Kind == table.KindNumber {
			fmt.Fprintf(&b, ", min %s, max %s, mean %.2f, std %.2f",
				table.FormatFloat(p.Min), table.FormatFloat(p.Max), p.Mean, p.Std)
		}
		b.WriteString(")\n")
	}

	r := detect.Resolve(ds.Columns)
	b.WriteString("\n[RESOLVED COLUMNS]\n")
	section := r.SectionID
	if section == "" {
		section = "(row index)"
	}
	pci := r.PCI
	if pci == "" {
		pci = "(none)"
	}
	fmt.Fprintf(&b, "Section id: %s\nPCI: %s\n", section, pci)
	fmt.Fprintf(&b, "Dates: %s\nDistress: %s\nCategory: %s\n", orNone(r.Dates), orNone(r.Distress), orNone(r.Category))
	return b.String()
}

func orNone(cols []string) string {
	if len(cols) == 0 {
		return "(none)"
	}
	return strings.Join(cols, ", ")
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectLoader.register(inspectCmd)
}
