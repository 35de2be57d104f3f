package pipeline

import (
	"context"
	"sync"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/config"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
)

// Source 定义样本来源接口
type Source interface {
	// Start 启动样本读取，读完后关闭输出channel
	Start(ctx context.Context, wg *sync.WaitGroup) error
	// Output 返回样本输出channel
	Output() <-chan *types.Job
}

// Processor 定义处理器接口
type Processor interface {
	// Process 处理样本，返回下一阶段的输入
	Process(ctx context.Context, in <-chan *types.Job, wg *sync.WaitGroup) (<-chan *types.Job, error)
	// Stage 返回处理器所属阶段
	Stage() types.Stage
	// Name 返回处理器的名称
	Name() string
	// CheckReady 检查处理器是否就绪
	CheckReady() error
	// Metrics 返回处理器计数
	Metrics() *metrics.ProcessorMetrics
}

// Sink 定义报告输出接口
type Sink interface {
	// Consume 消费处理后的样本
	Consume(ctx context.Context, in <-chan *types.Job) error
	// Ready 返回就绪信号channel
	Ready() <-chan struct{}
}

// Pipeline 定义处理流水线接口
type Pipeline interface {
	// AddProcessor 添加处理器
	AddProcessor(processor Processor) error
	// SetSource 设置样本来源
	SetSource(source Source)
	// SetSink 设置报告输出
	SetSink(sink Sink)
	// Start 启动流水线
	Start(ctx context.Context) error
	// Done 所有样本写出后关闭
	Done() <-chan struct{}
	// Stop 停止流水线
	Stop() error
	// GetMetrics 获取处理器指标
	GetMetrics() map[string]*metrics.ProcessorMetrics
	// SetConfig 设置流水线配置
	SetConfig(*config.Config) error
	// Status 返回流水线状态
	Status() string
}
