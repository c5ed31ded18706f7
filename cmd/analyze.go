package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/KaramelBytes/pavecheck-cli/internal/export"
	"github.com/KaramelBytes/pavecheck-cli/internal/logging"
	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/KaramelBytes/pavecheck-cli/internal/project"
	"github.com/KaramelBytes/pavecheck-cli/internal/store"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/KaramelBytes/pavecheck-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaProject     string
	anaCurrent     []string
	anaHistorical  []string
	anaMaintenance []string
	anaRangesFile  string
	anaRanges      []string
	anaFormat      string
	anaOutputPath  string
	anaHistory     bool
	anaLoader      loaderFlags

	anaConfidence []string
	anaReviewType []string
	anaMatch      string
	anaMinPCI     float64
	anaMaxPCI     float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [current-file...]",
	Short: "Flag suspicious records in a pavement condition survey",
	Long: `Analyze loads the current survey (and optionally a historical survey and maintenance
records), runs every anomaly rule, and writes the flagged sections as Markdown, JSON,
CSV or XLSX. Files of the same role are merged. With -p, the project's registered
datasets and manual ranges are used; files passed on the command line replace the
project's datasets of that role.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := anaLoader.options()
		if err != nil {
			return err
		}
		filter, err := analyzeFilter(cmd)
		if err != nil {
			return err
		}
		current := append(append([]string(nil), anaCurrent...), args...)
		in, err := buildInput(anaProject, current, anaHistorical, anaMaintenance, opt)
		if err != nil {
			return err
		}
		if err := applyRanges(&in, anaRangesFile, anaRanges); err != nil {
			return err
		}

		full, err := runAnalysis(cmd.Context(), in)
		if err != nil {
			return err
		}
		rep := full.Filtered(filter)

		format, err := outputFormat(anaFormat, anaOutputPath)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX && anaOutputPath == "" {
			return fmt.Errorf("xlsx output needs a file: pass -o <path>.xlsx")
		}
		var buf bytes.Buffer
		if err := export.Write(&buf, format, rep); err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote %d anomalies to %s\n", len(rep.Anomalies), anaOutputPath)
		} else {
			if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
				return err
			}
		}

		if anaHistory || settings().HistoryDB != "" {
			id, err := recordRun(cmd.Context(), anaProject, full)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Recorded run %s\n", id)
		}
		return nil
	},
}

// analyzeFilter builds the review filter from the --confidence, --review-type,
// --match and --min-pci/--max-pci flags.
func analyzeFilter(cmd *cobra.Command) (detect.Filter, error) {
	var f detect.Filter
	for _, c := range anaConfidence {
		v, err := detect.ParseConfidence(c)
		if err != nil {
			return f, err
		}
		f.Confidences = append(f.Confidences, v)
	}
	for _, r := range anaReviewType {
		v, err := detect.ParseReviewType(r)
		if err != nil {
			return f, err
		}
		f.ReviewTypes = append(f.ReviewTypes, v)
	}
	f.Match = anaMatch
	if cmd.Flags().Changed("min-pci") {
		v := anaMinPCI
		f.MinPCI = &v
	}
	if cmd.Flags().Changed("max-pci") {
		v := anaMaxPCI
		f.MaxPCI = &v
	}
	return f, f.Validate()
}

// buildInput loads a project's datasets (when named) and replaces each role
// for which files were passed explicitly.
func buildInput(projectName string, current, historical, maintenance []string, opt parser.Options) (detect.Input, error) {
	var in detect.Input
	if projectName != "" {
		projDir, err := resolveProjectDirByName(projectName)
		if err != nil {
			return in, err
		}
		p, err := project.LoadProject(projDir)
		if err != nil {
			return in, err
		}
		if in, err = p.Input(opt); err != nil {
			return in, err
		}
	}
	load := func(role project.Role, files []string, dst **table.Dataset) error {
		if len(files) == 0 {
			return nil
		}
		ds, err := parser.LoadFiles(expandFiles(files), opt)
		if err != nil {
			return fmt.Errorf("%s data: %w", role, err)
		}
		*dst = ds
		return nil
	}
	if err := load(project.RoleCurrent, current, &in.Current); err != nil {
		return in, err
	}
	if err := load(project.RoleHistorical, historical, &in.Historical); err != nil {
		return in, err
	}
	if err := load(project.RoleMaintenance, maintenance, &in.Maintenance); err != nil {
		return in, err
	}
	if in.Current == nil {
		return in, fmt.Errorf("no current survey: pass --current <file> or register one with 'add --role current'")
	}
	return in, nil
}

// applyRanges layers a ranges file and --range flags over any project ranges.
func applyRanges(in *detect.Input, file string, flags []string) error {
	merged := detect.ManualRanges{}
	for k, m := range in.ManualRanges {
		merged[k] = m
	}
	if file != "" {
		rs, err := detect.LoadRanges(file)
		if err != nil {
			return err
		}
		for k, m := range rs {
			merged[k] = m
		}
	}
	for _, f := range flags {
		sec, m, err := detect.ParseRangeFlag(f)
		if err != nil {
			return err
		}
		if err := merged.Set(sec, m); err != nil {
			return err
		}
	}
	in.ManualRanges = merged
	return nil
}

// runAnalysis runs the detector with the configured thresholds.
func runAnalysis(ctx context.Context, in detect.Input) (*detect.Report, error) {
	det := detect.New(
		detect.WithThresholds(settings().Thresholds()),
		detect.WithLogger(logging.New("detect")),
	)
	res, err := det.Detect(ctx, in)
	if err != nil {
		return nil, err
	}
	return detect.NewReport(in.Current.Name, in, res), nil
}

// outputFormat prefers --format, then the output file extension, then config.
func outputFormat(flag, output string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if f, ok := export.FormatFromPath(output); ok {
		return f, nil
	}
	return export.ParseFormat(settings().DefaultFormat)
}

func historyPath() (string, error) {
	if p := settings().HistoryDB; p != "" {
		return expandHome(p)
	}
	dir, err := cfgDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func recordRun(ctx context.Context, projectName string, rep *detect.Report) (string, error) {
	path, err := historyPath()
	if err != nil {
		return "", err
	}
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()
	run := store.NewRun(projectName, rep)
	if err := st.SaveRun(ctx, run, rep.Anomalies); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaProject, "project", "p", "", "project whose datasets and manual ranges to analyze")
	analyzeCmd.Flags().StringArrayVar(&anaCurrent, "current", nil, "current survey file (repeatable; files are merged)")
	analyzeCmd.Flags().StringArrayVar(&anaHistorical, "historical", nil, "historical survey file (repeatable)")
	analyzeCmd.Flags().StringArrayVar(&anaMaintenance, "maintenance", nil, "maintenance records file (repeatable)")
	analyzeCmd.Flags().StringVar(&anaRangesFile, "ranges", "", "YAML file of manual PCI ranges (section: [min, max])")
	analyzeCmd.Flags().StringArrayVar(&anaRanges, "range", nil, "manual PCI range SECTION=MIN:MAX (repeatable)")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "", "output format: markdown|json|csv|xlsx|minitab (default from -o extension or config)")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write output to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&anaHistory, "history", false, "record this run in the history database")
	analyzeCmd.Flags().StringSliceVar(&anaConfidence, "confidence", nil, "only report anomalies of these confidences: high,medium,low")
	analyzeCmd.Flags().StringSliceVar(&anaReviewType, "review-type", nil, "only report anomalies of these review types: field,desktop")
	analyzeCmd.Flags().StringVar(&anaMatch, "match", "", "only report anomalies whose section, rule or reason contains this text")
	analyzeCmd.Flags().Float64Var(&anaMinPCI, "min-pci", 0, "only report anomalies whose PCI is at least this value")
	analyzeCmd.Flags().Float64Var(&anaMaxPCI, "max-pci", 100, "only report anomalies whose PCI is at most this value")
	anaLoader.register(analyzeCmd)
}
