package detect

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/KaramelBytes/pavecheck-cli/internal/logging"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// ds builds a dataset from a header and raw rows.
func ds(header []string, rows ...[]string) *table.Dataset {
	return table.FromRecords("test", header, rows, table.NumberFormat{})
}

func quiet(opts ...Option) *Detector {
	return New(append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func capture(buf *bytes.Buffer, opts ...Option) *Detector {
	l := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(append([]Option{WithLogger(l)}, opts...)...)
}

func detect(t *testing.T, d *Detector, in Input) []Anomaly {
	t.Helper()
	res, err := d.Detect(context.Background(), in)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	return res.Anomalies
}

func onlyRule(as []Anomaly, rule string) []Anomaly {
	var out []Anomaly
	for _, a := range as {
		if a.Rule == rule {
			out = append(out, a)
		}
	}
	return out
}
