package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridfunnel/gridfunnel/funnel"
	"github.com/gridfunnel/gridfunnel/funnel/feed"
	"github.com/gridfunnel/gridfunnel/funnel/gate"
	"github.com/gridfunnel/gridfunnel/funnel/grid"
	"github.com/gridfunnel/gridfunnel/funnel/metrics"
	"github.com/gridfunnel/gridfunnel/funnel/proxy"
	"github.com/gridfunnel/gridfunnel/funnel/trace"
)

// runCmd gates, scores, selects and confirms a grid
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the admission gate and the screening funnel, printing the Top-K report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pricesPath == "" || gridPath == "" {
			logrus.Fatalf("Both --prices and --grid are required.")
		}
		cfg, err := loadConfig(cmd, configPath)
		if err != nil {
			return err
		}

		startTime := time.Now()
		rep, tr, err := runPipeline(cfg, pricesPath, gridPath)
		logTraceSummary(tr)
		if err != nil {
			return err
		}
		logrus.Infof("Run %s complete in %s: %d of %d rows selected.",
			rep.RunID, time.Since(startTime).Round(time.Millisecond), rep.Summary.Selected, rep.Summary.Rows)

		return renderReport(os.Stdout, rep, resolveFormat(cfg.Output.Format, os.Stdout))
	},
}

// runPipeline loads the inputs, admits the workload and runs the funnel on the admitted grid.
// The trace is returned even when the run fails so callers can log what was decided.
func runPipeline(cfg *RunConfig, pricesFile, gridFile string) (*funnel.Report, *trace.FunnelTrace, error) {
	tr := trace.NewFunnelTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.Output.Trace)})

	rec, err := metrics.NewRecorder(nil)
	if err != nil {
		return nil, tr, err
	}
	defer func() {
		if cfg.Output.MetricsFile == "" {
			return
		}
		if err := rec.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logrus.Warnf("metrics: %v", err)
		}
	}()

	prices, err := feed.Load(pricesFile)
	if err != nil {
		return nil, tr, err
	}
	spec, err := grid.Load(gridFile)
	if err != nil {
		return nil, tr, err
	}
	params, err := spec.Count()
	if err != nil {
		return nil, tr, err
	}

	d := admit(cfg, cfg.WorkloadFor(int64(prices.Bars()), params), rec, tr, filepath.Base(gridFile))
	if !d.Action.Admits() {
		return nil, tr, fmt.Errorf("%w: %s", ErrBlocked, d.Reason)
	}

	m, sourceRows, err := spec.ExpandSample(d.FinalSubsample, cfg.Funnel.Seed)
	if err != nil {
		return nil, tr, err
	}
	if int64(m.Rows()) < params {
		logrus.Infof("Subsampled grid: %d of %d rows (seed %d)", m.Rows(), params, cfg.Funnel.Seed)
	}

	scorer, err := proxy.NewScorer(cfg.ScorerConfig())
	if err != nil {
		return nil, tr, err
	}
	confirmer, err := proxy.NewConfirmer(prices, m)
	if err != nil {
		return nil, tr, err
	}

	f := funnel.New(scorer, funnel.WithObserver(rec), funnel.WithTrace(tr))
	out, err := f.Run(prices, m, cfg.Funnel.K, confirmer.Confirm)
	if err != nil {
		return nil, tr, err
	}

	return out.Report(funnel.ReportOptions{
		Admission:  admissionSection(d),
		Matrix:     &m,
		SourceRows: sourceRows,
	}), tr, nil
}

func admissionSection(d gate.ActionDecision) *funnel.AdmissionSection {
	return &funnel.AdmissionSection{
		Action:            d.Action.String(),
		Reason:            d.Reason,
		EstimatedBytes:    d.Estimates.EstimatedBytes,
		BudgetBytes:       d.Estimates.BudgetBytes,
		EstimatedOps:      d.Estimates.EstimatedOps,
		EstimatedSeconds:  d.Estimates.EstimatedSeconds,
		OriginalSubsample: d.Estimates.OriginalSubsample,
		FinalSubsample:    d.FinalSubsample,
		EffectiveParams:   d.Estimates.EffectiveParams,
	}
}

func init() {
	runCmd.Flags().StringVar(&gridPath, "grid", "", "Grid spec file (YAML)")
	runCmd.Flags().StringVar(&pricesPath, "prices", "", "OHLCV bar file (.csv or .parquet)")
	runCmd.Flags().Int("k", 50, "Number of top-ranked rows sent to confirmation")
	runCmd.Flags().String("path", "batch", "Stage-0 kernel path (batch, portable)")
	runCmd.Flags().Int("workers", 1, "Concurrent Stage-0 workers")
	runCmd.Flags().Int64("seed", 42, "Seed for grid subsampling")
	runCmd.Flags().String("format", "auto", "Report format (auto, json, table); auto is table on a terminal")
	runCmd.Flags().String("metrics-file", "", "Write Prometheus metrics in text format to this file")
	addConfigFlags(runCmd)
}
