// Package funnel provides the progressive-filtering core for parameter-grid searches.
//
// # Reading Guide
//
//   - matrix.go, prices.go: the immutable inputs (ParameterMatrix, PriceSeries)
//   - types.go: per-row Stage-0 results, Stage-2 results and the scorer interface
//   - topk.go: the deterministic Top-K selector
//   - funnel.go: RunFunnel, the composed Stage 0 -> Top-K -> Stage 2 pipeline
//   - report.go: the bounded, versioned result handed to artifact writers
//
// # Architecture
//
// The funnel package defines interfaces and data types; implementations live in
// sub-packages:
//   - funnel/kernels/: numeric kernels (batch and portable paths)
//   - funnel/proxy/: the directional-efficiency proxy scorer
//   - funnel/gate/: resource estimation and the admission gate
//   - funnel/trace/: decision trace recording
//   - funnel/metrics/: Prometheus instrumentation
//   - funnel/grid/, funnel/feed/: parameter-grid and price-file loaders
//
// funnel/proxy registers its constructor via init() into NewProxyScorerFunc, so
// callers that only need the default scorer import it for side effects.
//
// # Invariants
//
// param_id is the 0-based matrix row index and the only key shared across stages.
// Stage-0 produces exactly one result per row. Top-K reads nothing but
// (ProxyValue, ParamID). Stage 2 is called once per Top-K member, in Top-K order,
// and its errors are returned untouched.
package funnel
