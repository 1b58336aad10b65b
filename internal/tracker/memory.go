// internal/tracker/memory.go
package tracker

import "runtime/metrics"

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// RuntimeProbe measures the margin between a fixed memory budget and the
// bytes held by live heap objects.
type RuntimeProbe struct {
	// Limit is the memory budget in bytes.
	Limit int

	sample [1]metrics.Sample
}

// NewRuntimeProbe returns a probe against limit bytes.
func NewRuntimeProbe(limit int) *RuntimeProbe {
	p := &RuntimeProbe{Limit: limit}
	p.sample[0].Name = heapObjectsMetric
	return p
}

// FreeMemory implements MemoryProbe.
func (p *RuntimeProbe) FreeMemory() int {
	metrics.Read(p.sample[:])
	if p.sample[0].Value.Kind() != metrics.KindUint64 {
		return p.Limit
	}
	return p.Limit - int(p.sample[0].Value.Uint64())
}

// FixedProbe reports a constant margin. Useful for tests and simulations.
type FixedProbe int

// FreeMemory implements MemoryProbe.
func (p FixedProbe) FreeMemory() int { return int(p) }
