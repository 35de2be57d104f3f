package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type AnalyzerMetrics struct {
	EmailAnalyses    uint64
	PacketAnalyses   uint64
	CanceledAnalyses uint64
	RuleMatches      uint64
	RuleErrors       uint64 // 规则执行出错或超时，按未命中处理
	SyntheticPackets uint64
	ProcessingTime   uint64 // 纳秒

	mu       sync.Mutex
	verdicts map[string]uint64
}

func NewAnalyzerMetrics() *AnalyzerMetrics {
	return &AnalyzerMetrics{
		verdicts: make(map[string]uint64),
	}
}

func (m *AnalyzerMetrics) IncrementEmailAnalyses() {
	atomic.AddUint64(&m.EmailAnalyses, 1)
}

func (m *AnalyzerMetrics) IncrementPacketAnalyses() {
	atomic.AddUint64(&m.PacketAnalyses, 1)
}

func (m *AnalyzerMetrics) IncrementCanceled() {
	atomic.AddUint64(&m.CanceledAnalyses, 1)
}

func (m *AnalyzerMetrics) AddRuleMatches(n int) {
	atomic.AddUint64(&m.RuleMatches, uint64(n))
}

func (m *AnalyzerMetrics) IncrementRuleErrors() {
	atomic.AddUint64(&m.RuleErrors, 1)
}

func (m *AnalyzerMetrics) AddSyntheticPackets(n int) {
	atomic.AddUint64(&m.SyntheticPackets, uint64(n))
}

func (m *AnalyzerMetrics) AddProcessingTime(duration time.Duration) {
	atomic.AddUint64(&m.ProcessingTime, uint64(duration.Nanoseconds()))
}

// RecordVerdict 按 领域/结论 计数
func (m *AnalyzerMetrics) RecordVerdict(domain, verdict string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verdicts == nil {
		m.verdicts = make(map[string]uint64)
	}
	m.verdicts[domain+"/"+verdict]++
}

// Verdicts 返回结论计数的快照
func (m *AnalyzerMetrics) Verdicts() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]uint64, len(m.verdicts))
	for k, v := range m.verdicts {
		snapshot[k] = v
	}
	return snapshot
}

func (m *AnalyzerMetrics) GetStats() map[string]interface{} {
	analyses := atomic.LoadUint64(&m.EmailAnalyses) + atomic.LoadUint64(&m.PacketAnalyses)
	return map[string]interface{}{
		"email_analyses":    atomic.LoadUint64(&m.EmailAnalyses),
		"packet_analyses":   atomic.LoadUint64(&m.PacketAnalyses),
		"canceled_analyses": atomic.LoadUint64(&m.CanceledAnalyses),
		"rule_matches":      atomic.LoadUint64(&m.RuleMatches),
		"rule_errors":       atomic.LoadUint64(&m.RuleErrors),
		"synthetic_packets": atomic.LoadUint64(&m.SyntheticPackets),
		"processing_time":   atomic.LoadUint64(&m.ProcessingTime),
		"avg_process_time": float64(atomic.LoadUint64(&m.ProcessingTime)) /
			float64(analyses+1),
		"verdicts": m.Verdicts(),
	}
}

// ProcessorMetrics 流水线中单个处理器的计数
type ProcessorMetrics struct {
	Processed      uint64
	Dropped        uint64
	ProcessingTime uint64 // 纳秒
}

func (m *ProcessorMetrics) IncrementProcessed() {
	atomic.AddUint64(&m.Processed, 1)
}

func (m *ProcessorMetrics) IncrementDropped() {
	atomic.AddUint64(&m.Dropped, 1)
}

func (m *ProcessorMetrics) AddProcessingTime(duration time.Duration) {
	atomic.AddUint64(&m.ProcessingTime, uint64(duration.Nanoseconds()))
}

func (m *ProcessorMetrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"processed":       atomic.LoadUint64(&m.Processed),
		"dropped":         atomic.LoadUint64(&m.Dropped),
		"processing_time": atomic.LoadUint64(&m.ProcessingTime),
		"avg_process_time": float64(atomic.LoadUint64(&m.ProcessingTime)) /
			float64(atomic.LoadUint64(&m.Processed)+1),
	}
}

type SourceMetrics struct {
	SamplesRead    uint64
	BytesProcessed uint64
	ErrorCount     uint64
}

func (m *SourceMetrics) IncrementSamplesRead() {
	atomic.AddUint64(&m.SamplesRead, 1)
}

func (m *SourceMetrics) AddBytesProcessed(bytes uint64) {
	atomic.AddUint64(&m.BytesProcessed, bytes)
}

func (m *SourceMetrics) IncrementErrorCount() {
	atomic.AddUint64(&m.ErrorCount, 1)
}

type SinkMetrics struct {
	ReportsWritten uint64
	WriteErrors    uint64
	BytesWritten   uint64
}

func (m *SinkMetrics) IncrementReportsWritten() {
	atomic.AddUint64(&m.ReportsWritten, 1)
}

func (m *SinkMetrics) IncrementWriteErrors() {
	atomic.AddUint64(&m.WriteErrors, 1)
}

func (m *SinkMetrics) AddBytesWritten(bytes uint64) {
	atomic.AddUint64(&m.BytesWritten, bytes)
}
