// register.go wires the proxy constructor into funnel.NewProxyScorerFunc. This
// init() runs when any package imports funnel/proxy, breaking the import cycle
// between funnel/ (interface owner) and funnel/proxy/ (implementation).
package proxy

import "github.com/gridfunnel/gridfunnel/funnel"

func init() {
	funnel.NewProxyScorerFunc = func(cfg funnel.ScorerConfig) (funnel.ProxyScorer, error) {
		return NewScorer(cfg)
	}
}
