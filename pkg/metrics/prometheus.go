package metrics

import (
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "threat_engine"

// Collector 把 AnalyzerMetrics 的计数导出为 Prometheus 指标
type Collector struct {
	metrics *AnalyzerMetrics

	analyses         *prometheus.Desc
	canceled         *prometheus.Desc
	ruleMatches      *prometheus.Desc
	ruleErrors       *prometheus.Desc
	syntheticPackets *prometheus.Desc
	processingTime   *prometheus.Desc
	verdicts         *prometheus.Desc
}

func NewCollector(m *AnalyzerMetrics) *Collector {
	return &Collector{
		metrics: m,
		analyses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "analyses_total"),
			"Completed analyses by domain.", []string{"domain"}, nil),
		canceled: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "canceled_analyses_total"),
			"Analyses canceled during the simulated latency.", nil, nil),
		ruleMatches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rule_matches_total"),
			"Rules that matched an analyzed text.", nil, nil),
		ruleErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rule_errors_total"),
			"Rule evaluations that failed or timed out.", nil, nil),
		syntheticPackets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "synthetic_packets_total"),
			"Synthetic packet records generated.", nil, nil),
		processingTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "processing_seconds_total"),
			"Time spent analyzing, excluding simulated latency.", nil, nil),
		verdicts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "verdicts_total"),
			"Verdicts by domain.", []string{"domain", "verdict"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.analyses
	ch <- c.canceled
	ch <- c.ruleMatches
	ch <- c.ruleErrors
	ch <- c.syntheticPackets
	ch <- c.processingTime
	ch <- c.verdicts
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.metrics
	ch <- prometheus.MustNewConstMetric(c.analyses, prometheus.CounterValue, float64(atomic.LoadUint64(&m.EmailAnalyses)), "email")
	ch <- prometheus.MustNewConstMetric(c.analyses, prometheus.CounterValue, float64(atomic.LoadUint64(&m.PacketAnalyses)), "packet")
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(atomic.LoadUint64(&m.CanceledAnalyses)))
	ch <- prometheus.MustNewConstMetric(c.ruleMatches, prometheus.CounterValue, float64(atomic.LoadUint64(&m.RuleMatches)))
	ch <- prometheus.MustNewConstMetric(c.ruleErrors, prometheus.CounterValue, float64(atomic.LoadUint64(&m.RuleErrors)))
	ch <- prometheus.MustNewConstMetric(c.syntheticPackets, prometheus.CounterValue, float64(atomic.LoadUint64(&m.SyntheticPackets)))
	ch <- prometheus.MustNewConstMetric(c.processingTime, prometheus.CounterValue, float64(atomic.LoadUint64(&m.ProcessingTime))/1e9)

	for key, count := range m.Verdicts() {
		domain, verdict, _ := strings.Cut(key, "/")
		ch <- prometheus.MustNewConstMetric(c.verdicts, prometheus.CounterValue, float64(count), domain, verdict)
	}
}
