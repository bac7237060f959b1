package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfunnel/gridfunnel/funnel"
)

// writeFixtures writes a 400-bar CSV and a 25-row grid spec and returns their paths.
func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	var csv strings.Builder
	csv.WriteString("timestamp,close\n")
	v := 100.0
	for i := 0; i < 400; i++ {
		v += 0.05 + math.Sin(float64(i)/13.0)
		fmt.Fprintf(&csv, "%d,%.6f\n", int64(i)*60_000, v)
	}
	prices := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(prices, []byte(csv.String()), 0o644))

	grid := filepath.Join(dir, "grid.yaml")
	require.NoError(t, os.WriteFile(grid, []byte("fast: {min: 2, max: 10, step: 2}\nslow: {min: 20, max: 60, step: 10}\n"), 0o644))
	return prices, grid
}

func defaultConfig(t *testing.T) *RunConfig {
	t.Helper()
	cfg, err := loadConfig(nil, "")
	require.NoError(t, err)
	return cfg
}

func TestRunPipeline_WithinBudget_FullGridReport(t *testing.T) {
	// GIVEN 400 bars × 25 rows, well within the default budget
	prices, grid := writeFixtures(t)
	cfg := defaultConfig(t)
	cfg.Funnel.K = 5
	cfg.Output.MetricsFile = filepath.Join(t.TempDir(), "gridfunnel.prom")

	// WHEN the pipeline runs
	rep, _, err := runPipeline(cfg, prices, grid)
	require.NoError(t, err)

	// THEN the full grid is scored and K rows are confirmed
	require.NotNil(t, rep.Admission)
	assert.Equal(t, "PASS", rep.Admission.Action)
	assert.Equal(t, 25, rep.Summary.Rows)
	assert.Equal(t, 5, rep.Summary.Selected)
	assert.Equal(t, 5, rep.Summary.Confirmed)
	require.Len(t, rep.TopK, 5)
	for i, e := range rep.TopK {
		assert.Equal(t, i+1, e.Rank)
		assert.Equal(t, e.ParamID, e.SourceRow)
		assert.Len(t, e.Params, 2)
		assert.Contains(t, e.Confirm, "hit_ratio")
		if i > 0 {
			assert.GreaterOrEqual(t, rep.TopK[i-1].Proxy, e.Proxy)
		}
	}

	// AND the metrics textfile was written
	data, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gridfunnel_gate_decisions_total{action="PASS"} 1`)
}

func TestRunPipeline_OverBudget_Downsamples(t *testing.T) {
	// GIVEN a 640,000-byte workload against a 0.2 MiB limit
	prices, grid := writeFixtures(t)
	cfg := defaultConfig(t)
	cfg.Funnel.K = 3
	cfg.Gate.MemLimitMB = 0.2
	cfg.Output.Trace = "decisions"

	rep, tr, err := runPipeline(cfg, prices, grid)
	require.NoError(t, err)

	// THEN the gate steps 1 -> 0.5 -> 0.25 and the funnel sees 6 of 25 rows
	assert.Equal(t, "AUTO_DOWNSAMPLE", rep.Admission.Action)
	assert.Equal(t, 0.25, rep.Admission.FinalSubsample)
	assert.Equal(t, 6, rep.Summary.Rows)
	for _, e := range rep.TopK {
		assert.GreaterOrEqual(t, e.SourceRow, 0)
		assert.Less(t, e.SourceRow, 25)
	}
	require.Len(t, tr.Gates, 1)
	assert.Equal(t, 2, tr.Gates[0].Steps)
	require.Len(t, tr.Selections, 1)
	assert.Equal(t, 6, tr.Selections[0].Rows)
}

func TestRunPipeline_FarOverBudget_Blocked(t *testing.T) {
	prices, grid := writeFixtures(t)
	cfg := defaultConfig(t)
	cfg.Gate.MemLimitMB = 0.001
	cfg.Output.Trace = "decisions"

	rep, tr, err := runPipeline(cfg, prices, grid)

	assert.Nil(t, rep)
	assert.True(t, errors.Is(err, ErrBlocked), "got %v", err)
	require.Len(t, tr.Gates, 1)
	assert.Equal(t, "BLOCK", tr.Gates[0].Action)
	assert.Equal(t, 0.02, tr.Gates[0].FinalSubsample)
	assert.Empty(t, tr.Selections, "nothing is scored after a BLOCK")
}

func TestRunPipeline_SameSeed_SameReport(t *testing.T) {
	prices, grid := writeFixtures(t)
	cfg := defaultConfig(t)
	cfg.Funnel.K = 4
	cfg.Gate.MemLimitMB = 0.2

	a, _, err := runPipeline(cfg, prices, grid)
	require.NoError(t, err)
	b, _, err := runPipeline(cfg, prices, grid)
	require.NoError(t, err)

	assert.Equal(t, a.TopK, b.TopK)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRenderReport_JSONAndTable(t *testing.T) {
	prices, grid := writeFixtures(t)
	cfg := defaultConfig(t)
	cfg.Funnel.K = 2
	rep, _, err := runPipeline(cfg, prices, grid)
	require.NoError(t, err)

	var js bytes.Buffer
	require.NoError(t, renderReport(&js, rep, "json"))
	var decoded funnel.Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, funnel.ReportSchemaVersion, decoded.SchemaVersion)
	assert.Len(t, decoded.TopK, 2)

	var table bytes.Buffer
	require.NoError(t, renderReport(&table, rep, "table"))
	out := table.String()
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "HIT_RATIO")
	assert.Contains(t, out, "Gate: PASS")

	assert.Error(t, renderReport(&table, rep, "xml"))
}

func TestResolveFormat_NonTerminal_JSON(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "json", resolveFormat("auto", f))
	assert.Equal(t, "table", resolveFormat("table", f))
}
