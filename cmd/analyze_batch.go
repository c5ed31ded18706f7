package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/KaramelBytes/pavecheck-cli/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abProject     string
	abHistorical  []string
	abMaintenance []string
	abRangesFile  string
	abRanges      []string
	abJobs        int
	abHistory     bool
	abLoader      loaderFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <current-files...>",
	Short: "Analyze several current surveys against the same historical and maintenance data",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandFiles(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if abJobs < 1 {
			abJobs = 1
		}
		opt, err := abLoader.options()
		if err != nil {
			return err
		}
		base, err := batchBase(abProject, abHistorical, abMaintenance, opt)
		if err != nil {
			return err
		}
		if err := applyRanges(&base, abRangesFile, abRanges); err != nil {
			return err
		}

		var st *store.Store
		if abHistory || settings().HistoryDB != "" {
			path, err := historyPath()
			if err != nil {
				return err
			}
			if st, err = store.Open(path); err != nil {
				return err
			}
			defer st.Close()
		}

		lines, failed, err := analyzeBatch(cmd.Context(), files, base, opt, st)
		if err != nil {
			return err
		}
		printBatch(os.Stdout, lines)
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		return nil
	},
}

// batchBase loads the shared historical and maintenance inputs.
func batchBase(projectName string, historical, maintenance []string, opt parser.Options) (detect.Input, error) {
	var in detect.Input
	if projectName != "" {
		p, err := loadProjectByName(projectName)
		if err != nil {
			return in, err
		}
		if in, err = p.Input(opt); err != nil {
			return in, err
		}
		in.Current = nil
	}
	if len(historical) > 0 {
		ds, err := parser.LoadFiles(expandFiles(historical), opt)
		if err != nil {
			return in, fmt.Errorf("historical data: %w", err)
		}
		in.Historical = ds
	}
	if len(maintenance) > 0 {
		ds, err := parser.LoadFiles(expandFiles(maintenance), opt)
		if err != nil {
			return in, fmt.Errorf("maintenance data: %w", err)
		}
		in.Maintenance = ds
	}
	return in, nil
}

type batchLine struct {
	file string
	rep  *detect.Report
	err  error
}

// analyzeBatch runs one independent analysis per file, at most abJobs at a
// time. Per-file failures are reported in their line; only cancellation
// aborts the batch.
func analyzeBatch(ctx context.Context, files []string, base detect.Input, opt parser.Options, st *store.Store) ([]batchLine, int, error) {
	lines := make([]batchLine, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(abJobs)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines[i] = analyzeOne(gctx, f, base, opt, st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	failed := 0
	for _, l := range lines {
		if l.err != nil {
			failed++
		}
	}
	return lines, failed, nil
}

func analyzeOne(ctx context.Context, file string, base detect.Input, opt parser.Options, st *store.Store) batchLine {
	line := batchLine{file: file}
	cur, err := parser.LoadFile(file, opt)
	if err != nil {
		line.err = err
		return line
	}
	in := base
	in.Current = cur
	if line.rep, line.err = runAnalysis(ctx, in); line.err != nil {
		return line
	}
	if st != nil {
		run := store.NewRun(abProject, line.rep)
		if err := st.SaveRun(ctx, run, line.rep.Anomalies); err != nil {
			line.err = fmt.Errorf("record run: %w", err)
		}
	}
	return line
}

func printBatch(w io.Writer, lines []batchLine) {
	for _, l := range lines {
		name := filepath.Base(l.file)
		if l.err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", name, l.err)
			continue
		}
		s := l.rep.Summary
		fmt.Fprintf(w, "✓ %s: %d sections, %d anomalies (%.2f%%), field %d, desktop %d\n",
			name, s.TotalSections, s.AnomaliesCount, s.ReviewPercentage,
			s.ByReviewType[detect.ReviewField], s.ByReviewType[detect.ReviewDesktop])
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abProject, "project", "p", "", "project whose historical/maintenance datasets and ranges to use")
	analyzeBatchCmd.Flags().StringArrayVar(&abHistorical, "historical", nil, "historical survey file (repeatable)")
	analyzeBatchCmd.Flags().StringArrayVar(&abMaintenance, "maintenance", nil, "maintenance records file (repeatable)")
	analyzeBatchCmd.Flags().StringVar(&abRangesFile, "ranges", "", "YAML file of manual PCI ranges")
	analyzeBatchCmd.Flags().StringArrayVar(&abRanges, "range", nil, "manual PCI range SECTION=MIN:MAX (repeatable)")
	analyzeBatchCmd.Flags().IntVar(&abJobs, "jobs", 4, "maximum files analyzed concurrently")
	analyzeBatchCmd.Flags().BoolVar(&abHistory, "history", false, "record each run in the history database")
	abLoader.register(analyzeBatchCmd)
}
