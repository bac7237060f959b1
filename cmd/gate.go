package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridfunnel/gridfunnel/funnel/feed"
	"github.com/gridfunnel/gridfunnel/funnel/gate"
	"github.com/gridfunnel/gridfunnel/funnel/grid"
	"github.com/gridfunnel/gridfunnel/funnel/metrics"
	"github.com/gridfunnel/gridfunnel/funnel/trace"
)

// ErrBlocked is returned when the admission gate refuses the workload.
var ErrBlocked = errors.New("admission gate blocked the workload")

var (
	gateBars   int64  // Bar count, when no price file is given
	gateParams int64  // Grid rows, when no grid file is given
	gridPath   string // Grid spec file
	pricesPath string // OHLCV bar file (.csv or .parquet)
)

// gateCmd evaluates the admission gate without scoring anything
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Dry-run the admission gate for a grid and price series",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, configPath)
		if err != nil {
			return err
		}
		bars, params, err := workloadSize(gateBars, gateParams)
		if err != nil {
			return err
		}
		tr := trace.NewFunnelTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.Output.Trace)})
		d := admit(cfg, cfg.WorkloadFor(bars, params), nil, tr, gridPath)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("writing decision: %w", err)
		}
		logTraceSummary(tr)
		if !d.Action.Admits() {
			return fmt.Errorf("%w: %s", ErrBlocked, d.Reason)
		}
		return nil
	},
}

// workloadSize derives bars and params from the price and grid files when given,
// falling back to the explicit counts.
func workloadSize(bars, params int64) (int64, int64, error) {
	if pricesPath != "" {
		ps, err := feed.Load(pricesPath)
		if err != nil {
			return 0, 0, err
		}
		bars = int64(ps.Bars())
	}
	if gridPath != "" {
		spec, err := grid.Load(gridPath)
		if err != nil {
			return 0, 0, err
		}
		if params, err = spec.Count(); err != nil {
			return 0, 0, err
		}
	}
	return bars, params, nil
}

// admit runs the downsample search and reports the decision to the recorder, trace and log.
func admit(cfg *RunConfig, w gate.Workload, rec *metrics.Recorder, tr *trace.FunnelTrace, label string) gate.ActionDecision {
	d := gate.Gate{}.Search(w, cfg.Gate)
	if rec != nil {
		rec.ObserveGate(d)
	}
	tr.RecordGate(trace.GateRecord{
		Workload:          label,
		Action:            d.Action.String(),
		Reason:            d.Reason,
		EstimatedBytes:    d.Estimates.EstimatedBytes,
		BudgetBytes:       d.Estimates.BudgetBytes,
		OriginalSubsample: d.Estimates.OriginalSubsample,
		FinalSubsample:    d.FinalSubsample,
		EffectiveParams:   d.Estimates.EffectiveParams,
		Steps:             d.Estimates.Steps,
	})

	switch d.Action {
	case gate.ActionPass:
		logrus.Infof("gate: PASS %s of %s, ~%.1fs", humanize.IBytes(uint64(d.Estimates.EstimatedBytes)),
			humanize.IBytes(uint64(d.Estimates.BudgetBytes)), d.Estimates.EstimatedSeconds)
	case gate.ActionAutoDownsample:
		logrus.Warnf("gate: %s", d.Reason)
	default:
		logrus.Errorf("gate: BLOCK: %s", d.Reason)
	}
	return d
}

func logTraceSummary(tr *trace.FunnelTrace) {
	if tr.Config.Level != trace.TraceLevelDecisions {
		return
	}
	s := trace.Summarize(tr)
	logrus.Infof("trace: %d gate decision(s) %v, min subsample %.4f; %d selection(s), %d of %d rows rejected (%.1f%%)",
		s.GateDecisions, s.ActionDistribution, s.MinFinalSubsample,
		s.Selections, s.TotalRejected, s.TotalRowsScored, 100*s.RejectedShare)
}

func init() {
	gateCmd.Flags().Int64Var(&gateBars, "bars", 0, "Number of bars, when --prices is not given")
	gateCmd.Flags().Int64Var(&gateParams, "params", 0, "Number of grid rows, when --grid is not given")
	gateCmd.Flags().StringVar(&gridPath, "grid", "", "Grid spec file (YAML)")
	gateCmd.Flags().StringVar(&pricesPath, "prices", "", "OHLCV bar file (.csv or .parquet)")
	addConfigFlags(gateCmd)
}
