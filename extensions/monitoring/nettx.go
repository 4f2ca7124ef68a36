// Package monitoring describes the metric mixins of the OCCI monitoring
// extension.
package monitoring

import "github.com/netresearch/occi-now/core/domain"

// NetTxLocation is the path the net_tx mixin is discoverable at.
const NetTxLocation = "/metric/compute/net_tx"

// Metric is the base mixin every metric mixin is related to.
var Metric = domain.Category{
	Scheme: "http://example.com/occi/infrastructure/metric#",
	Term:   "metric",
	Title:  "Metric",
}

// NetTx returns the descriptor of the compute network transmission metric.
func NetTx() domain.Mixin {
	return domain.Mixin{
		Category: domain.Category{
			Scheme: "http://example.com/occi/infrastructure/metric/compute#",
			Term:   "net_tx",
			Title:  "compute.net_tx",
		},
		Related:  []string{Metric.Identifier()},
		Location: NetTxLocation,
	}
}

// Registrar accepts mixin descriptors, e.g. a *registry.Registry.
type Registrar interface {
	Register(m domain.Mixin) error
}

// Register installs the monitoring mixins into reg. It is meant to be
// called once while wiring up the server.
func Register(reg Registrar) error {
	return reg.Register(NetTx())
}
