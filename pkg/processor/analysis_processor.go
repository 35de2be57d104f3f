package processor

import (
	"context"
	"sync"
	"time"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

// AnalysisProcessor 用固定数量的worker并发分析样本，输出顺序不保证与输入一致
type AnalysisProcessor struct {
	analyzer    *Analyzer
	workerCount int
	metrics     *metrics.ProcessorMetrics
}

func NewAnalysisProcessor(analyzer *Analyzer, workerCount int) *AnalysisProcessor {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &AnalysisProcessor{
		analyzer:    analyzer,
		workerCount: workerCount,
		metrics:     &metrics.ProcessorMetrics{},
	}
}

// Process 处理流程：
// 1. 前面阶段已失败的样本直接透传
// 2. 其余样本交给编排器分析，报告写回Job
// 3. 所有worker退出后关闭输出channel
func (p *AnalysisProcessor) Process(ctx context.Context, in <-chan *types.Job, wg *sync.WaitGroup) (<-chan *types.Job, error) {
	if err := p.CheckReady(); err != nil {
		return nil, err
	}
	out := make(chan *types.Job)

	var workers sync.WaitGroup
	workers.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			defer workers.Done()
			p.work(ctx, workerID, in, out)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		workers.Wait()
		close(out)
	}()

	return out, nil
}

func (p *AnalysisProcessor) work(ctx context.Context, workerID int, in <-chan *types.Job, out chan<- *types.Job) {
	for job := range in {
		if !job.HasError() {
			start := time.Now()
			report, err := p.analyzer.Analyze(ctx, job.Sample)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"worker":    workerID,
					"sample_id": sampleID(job),
					"error":     err,
				}).Error("sample analysis failed")
				job.Failed(err)
				p.metrics.IncrementDropped()
			} else {
				job.Report = report
				p.metrics.IncrementProcessed()
			}
			p.metrics.AddProcessingTime(time.Since(start))
		}

		select {
		case out <- job:
		case <-ctx.Done():
			return
		}
	}
}

func (p *AnalysisProcessor) Stage() types.Stage {
	return types.StageAnalysis
}

func (p *AnalysisProcessor) Name() string {
	return "AnalysisProcessor"
}

func (p *AnalysisProcessor) CheckReady() error {
	if p.analyzer == nil {
		return types.ErrProcessorNotReady
	}
	return nil
}

func (p *AnalysisProcessor) Metrics() *metrics.ProcessorMetrics {
	return p.metrics
}
