package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures gate decisions and Top-K selections.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// FunnelTrace collects decision records across gate evaluations and funnel runs.
// Not safe for concurrent use; give each run its own trace.
type FunnelTrace struct {
	Config     TraceConfig
	Gates      []GateRecord
	Selections []SelectionRecord
}

// NewFunnelTrace creates a FunnelTrace ready for recording.
func NewFunnelTrace(config TraceConfig) *FunnelTrace {
	return &FunnelTrace{
		Config:     config,
		Gates:      make([]GateRecord, 0),
		Selections: make([]SelectionRecord, 0),
	}
}

func (ft *FunnelTrace) enabled() bool {
	return ft != nil && ft.Config.Level == TraceLevelDecisions
}

// RecordGate appends a gate decision record. No-op unless the level is "decisions".
func (ft *FunnelTrace) RecordGate(record GateRecord) {
	if ft.enabled() {
		ft.Gates = append(ft.Gates, record)
	}
}

// RecordSelection appends a Top-K selection record. No-op unless the level is "decisions".
func (ft *FunnelTrace) RecordSelection(record SelectionRecord) {
	if ft.enabled() {
		ft.Selections = append(ft.Selections, record)
	}
}
