package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridfunnel/gridfunnel/funnel"
	"github.com/gridfunnel/gridfunnel/funnel/gate"
	"github.com/gridfunnel/gridfunnel/funnel/kernels"
	"github.com/gridfunnel/gridfunnel/funnel/trace"
)

// envPrefix namespaces environment overrides: GRIDFUNNEL_GATE_MEM_LIMIT_MB etc.
const envPrefix = "GRIDFUNNEL"

// WorkloadConfig sizes the per-row cost the gate charges.
type WorkloadConfig struct {
	SubsampleRate  float64 `mapstructure:"subsample_rate"`
	IntentsPerBar  float64 `mapstructure:"intents_per_bar"`
	BytesPerIntent float64 `mapstructure:"bytes_per_intent"`
}

// FunnelConfig tunes Stage 0 and selection.
type FunnelConfig struct {
	K       int    `mapstructure:"k"`
	Path    string `mapstructure:"path"`
	Workers int    `mapstructure:"workers"`
	Seed    int64  `mapstructure:"seed"` // subsample RNG seed
}

// OutputConfig controls what a run writes besides the report.
type OutputConfig struct {
	Format      string `mapstructure:"format"` // auto, json or table
	MetricsFile string `mapstructure:"metrics_file"`
	Trace       string `mapstructure:"trace"`
}

// RunConfig is the full configuration of a gate or run invocation.
type RunConfig struct {
	Gate     gate.SearchConfig `mapstructure:"gate"`
	Workload WorkloadConfig    `mapstructure:"workload"`
	Funnel   FunnelConfig      `mapstructure:"funnel"`
	Output   OutputConfig      `mapstructure:"output"`
}

// configFlags maps config keys to the flag that overrides them when explicitly set.
var configFlags = map[string]string{
	"gate.mem_limit_mb":          "mem-limit-mb",
	"gate.allow_auto_downsample": "auto-downsample",
	"gate.step":                  "step",
	"gate.floor":                 "floor",
	"workload.subsample_rate":    "subsample",
	"workload.intents_per_bar":   "intents-per-bar",
	"workload.bytes_per_intent":  "bytes-per-intent",
	"funnel.k":                   "k",
	"funnel.path":                "path",
	"funnel.workers":             "workers",
	"funnel.seed":                "seed",
	"output.format":              "format",
	"output.metrics_file":        "metrics-file",
	"output.trace":               "trace",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gate.mem_limit_mb", 4096.0)
	v.SetDefault("gate.allow_auto_downsample", true)
	v.SetDefault("gate.step", gate.DefaultStep)
	v.SetDefault("gate.floor", gate.DefaultFloor)

	v.SetDefault("workload.subsample_rate", 1.0)
	v.SetDefault("workload.intents_per_bar", 1.0)
	v.SetDefault("workload.bytes_per_intent", 64.0)

	v.SetDefault("funnel.k", 50)
	v.SetDefault("funnel.path", string(kernels.PathBatch))
	v.SetDefault("funnel.workers", 1)
	v.SetDefault("funnel.seed", int64(42))

	v.SetDefault("output.format", "auto")
	v.SetDefault("output.metrics_file", "")
	v.SetDefault("output.trace", string(trace.TraceLevelNone))
}

// loadConfig merges defaults, the optional config file, GRIDFUNNEL_* environment
// variables and explicitly changed flags of cmd, in increasing precedence.
func loadConfig(cmd *cobra.Command, path string) (*RunConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if cmd != nil {
		for key, name := range configFlags {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the gate and funnel cannot repair themselves.
func (c *RunConfig) Validate() error {
	if c.Funnel.K < 0 {
		return fmt.Errorf("funnel.k must not be negative, got %d", c.Funnel.K)
	}
	if !kernels.IsValidPath(c.Funnel.Path) {
		return fmt.Errorf("unknown funnel.path %q; valid: batch, portable", c.Funnel.Path)
	}
	if !trace.IsValidTraceLevel(c.Output.Trace) {
		return fmt.Errorf("unknown output.trace %q; valid: none, decisions", c.Output.Trace)
	}
	switch c.Output.Format {
	case "auto", "json", "table":
	default:
		return fmt.Errorf("unknown output.format %q; valid: auto, json, table", c.Output.Format)
	}
	if c.Workload.IntentsPerBar < 0 || c.Workload.BytesPerIntent < 0 {
		return fmt.Errorf("workload.intents_per_bar and workload.bytes_per_intent must not be negative")
	}
	return nil
}

// ScorerConfig converts the funnel section for funnel/proxy.
func (c *RunConfig) ScorerConfig() funnel.ScorerConfig {
	return funnel.ScorerConfig{Path: c.Funnel.Path, Workers: c.Funnel.Workers}
}

// WorkloadFor sizes a gate workload for a grid of params rows over bars bars.
func (c *RunConfig) WorkloadFor(bars, params int64) gate.Workload {
	return gate.Workload{
		Bars:           bars,
		Params:         params,
		SubsampleRate:  c.Workload.SubsampleRate,
		IntentsPerBar:  c.Workload.IntentsPerBar,
		BytesPerIntent: c.Workload.BytesPerIntent,
	}
}

// addConfigFlags registers the flags every subcommand shares.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("mem-limit-mb", 4096, "Memory budget in MiB")
	f.Bool("auto-downsample", true, "Shrink the grid instead of blocking when over budget")
	f.Float64("step", gate.DefaultStep, "Subsample multiplier per downsample iteration")
	f.Float64("floor", gate.DefaultFloor, "Lowest subsample rate the gate may choose")
	f.Float64("subsample", 1.0, "Starting subsample rate of the grid")
	f.Float64("intents-per-bar", 1.0, "Simulated order intents per bar per parameter row")
	f.Float64("bytes-per-intent", 64.0, "Bytes held per order intent")
	f.String("trace", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
}
