package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

// SampleValidator 在分析前拒绝空文本和未知领域的样本
// 被拒绝的样本带着错误报告继续流向下游，不会丢弃
type SampleValidator struct {
	metrics *metrics.ProcessorMetrics
}

func NewSampleValidator() *SampleValidator {
	return &SampleValidator{metrics: &metrics.ProcessorMetrics{}}
}

// ValidateSample 检查样本是否满足分析的前置条件
func ValidateSample(sample *types.Sample) error {
	if sample == nil {
		return fmt.Errorf("sample is nil")
	}
	if !sample.Domain.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnsupportedDomain, sample.Domain)
	}
	if strings.TrimSpace(sample.Text) == "" {
		return types.ErrEmptyInput
	}
	return nil
}

func (v *SampleValidator) Process(ctx context.Context, in <-chan *types.Job, wg *sync.WaitGroup) (<-chan *types.Job, error) {
	out := make(chan *types.Job)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)

		for job := range in {
			if job.HasError() {
				// 解码失败的样本直接下传
				v.metrics.IncrementDropped()
			} else if err := ValidateSample(job.Sample); err != nil {
				logrus.WithFields(logrus.Fields{
					"sample_id": sampleID(job),
					"error":     err,
				}).Warn("sample rejected")
				job.Failed(err)
				v.metrics.IncrementDropped()
			} else {
				v.metrics.IncrementProcessed()
			}

			select {
			case out <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (v *SampleValidator) Stage() types.Stage {
	return types.StageSampleDecoding
}

func (v *SampleValidator) Name() string {
	return "SampleValidator"
}

func (v *SampleValidator) CheckReady() error {
	return nil
}

func (v *SampleValidator) Metrics() *metrics.ProcessorMetrics {
	return v.metrics
}

func sampleID(job *types.Job) string {
	if job.Sample == nil {
		return ""
	}
	return job.Sample.ID
}
