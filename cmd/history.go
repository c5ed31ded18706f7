package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pavecheck-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	histProject string
	histRunID   string
	histLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs, or the anomalies of one run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := historyPath()
		if err != nil {
			return err
		}
		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()

		if histRunID != "" {
			as, err := st.RunAnomalies(cmd.Context(), histRunID)
			if err != nil {
				return err
			}
			if len(as) == 0 {
				fmt.Println("(no anomalies)")
				return nil
			}
			for _, a := range as {
				fmt.Printf("- %s [%s, %s review, %s]: %s\n", a.SectionID, a.Rule, a.ReviewType, a.Confidence, a.Reason)
			}
			return nil
		}

		runs, err := st.ListRuns(cmd.Context(), histProject, histLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("(no runs)")
			return nil
		}
		for _, r := range runs {
			proj := r.Project
			if proj == "" {
				proj = "-"
			}
			fmt.Printf("- %s  %s  %s  %s: %d/%d flagged (%.2f%%)\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), proj, r.Dataset,
				r.AnomaliesCount, r.TotalSections, r.ReviewPercentage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&histProject, "project", "p", "", "only runs of this project")
	historyCmd.Flags().StringVar(&histRunID, "run", "", "show the anomalies of one run")
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum runs to list (0 = all)")
}
