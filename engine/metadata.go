package engine

import "sync/atomic"

// Metadata counts the work done by one top-level search. It is shared by
// every branch of the search, including branches running on other workers.
type Metadata struct {
	nodes  atomic.Int64
	prunes atomic.Int64
}

// Metrics is a point-in-time copy of a Metadata.
type Metrics struct {
	Nodes  int64 `json:"nodes"`
	Prunes int64 `json:"prunes"`
}

func (m *Metadata) visit() {
	m.nodes.Add(1)
}

func (m *Metadata) prune() {
	m.prunes.Add(1)
}

// Nodes returns the number of positions visited so far.
func (m *Metadata) Nodes() int64 {
	return m.nodes.Load()
}

// Prunes returns the number of cut-offs so far.
func (m *Metadata) Prunes() int64 {
	return m.prunes.Load()
}

func (m *Metadata) Snapshot() Metrics {
	return Metrics{Nodes: m.Nodes(), Prunes: m.Prunes()}
}
