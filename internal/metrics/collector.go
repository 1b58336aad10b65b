// internal/metrics/collector.go
package metrics

import (
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/faultcapture/internal/record"
)

const namespace = "faultcapture"

// FaultSource is the query side the collector scrapes.
type FaultSource interface {
	Fault() (record.Record, error)
}

// Collector exports the persisted fault record. The store is read on
// every scrape; nothing is cached.
type Collector struct {
	log    hclog.Logger
	source FaultSource

	present  *prometheus.Desc
	failures *prometheus.Desc
	fault    *prometheus.Desc
}

// NewCollector returns a collector for the device named device.
func NewCollector(log hclog.Logger, device string, source FaultSource) *Collector {
	labels := prometheus.Labels{"device": device}

	return &Collector{
		log:    log,
		source: source,
		present: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "fault_present"),
			"Whether a fault record is persisted (1) or the store is blank (0).",
			nil, labels,
		),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "failures_total"),
			"Fault captures since the device was last programmed.",
			nil, labels,
		),
		fault: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "fault_line"),
			"Last marked line of the persisted fault, labelled with its cause and file.",
			[]string{"cause", "file", "corrupted"}, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.present
	ch <- c.failures
	ch <- c.fault
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	rec, err := c.source.Fault()
	if err != nil {
		c.log.Error("fault record read failed", "error", err)
		ch <- prometheus.NewInvalidMetric(c.present, err)
		return
	}

	present := 0.0
	if rec.Cause != record.CauseNone {
		present = 1
	}

	ch <- prometheus.MustNewConstMetric(c.present, prometheus.GaugeValue, present)
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(rec.FailureCount))

	if present == 0 {
		return
	}

	// the name may be cut mid-rune at capture, or be garbage in a raw region
	file := strings.ToValidUTF8(rec.FileName(), "\uFFFD")
	m, err := prometheus.NewConstMetric(c.fault, prometheus.GaugeValue, float64(rec.Line),
		rec.Cause.String(), file, strconv.FormatBool(rec.Corrupted))
	if err != nil {
		c.log.Error("fault metric rejected", "file", file, "error", err)
		ch <- prometheus.NewInvalidMetric(c.fault, err)
		return
	}
	ch <- m
}

var _ prometheus.Collector = (*Collector)(nil)
