package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/config"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

type pipeline struct {
	source     Source
	processors []Processor
	sink       Sink
	running    bool
	mu         sync.Mutex
	errChan    chan error
	status     string
	config     *config.Config
	startTime  time.Time
	done       chan struct{}
	stop       chan struct{}
	wg         sync.WaitGroup // 用于跟踪所有goroutine
}

func NewPipeline() Pipeline {
	return &pipeline{
		processors: make([]Processor, 0),
		errChan:    make(chan error, 1),
		status:     "initialized",
		done:       make(chan struct{}),
	}
}

func (p *pipeline) AddProcessor(processor Processor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("cannot add processor while pipeline is running")
	}

	p.processors = append(p.processors, processor)
	// 按Stage排序处理器
	sort.SliceStable(p.processors, func(i, j int) bool {
		return p.processors[i].Stage() < p.processors[j].Stage()
	})

	return nil
}

func (p *pipeline) SetSource(source Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = source
}

func (p *pipeline) SetSink(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

func (p *pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return types.NewPipelineError("start", fmt.Errorf("pipeline already running"))
	}
	if p.source == nil || p.sink == nil {
		p.mu.Unlock()
		return types.NewPipelineError("start", fmt.Errorf("source and sink are required"))
	}

	p.wg = sync.WaitGroup{}
	p.running = true
	p.startTime = time.Now()
	p.status = "starting"
	p.errChan = make(chan error, 100)
	p.done = make(chan struct{})
	p.stop = make(chan struct{})
	errChan, stop := p.errChan, p.stop
	p.mu.Unlock()

	logrus.Info("Starting pipeline")

	// 1. 首先检查所有处理器是否就绪
	for _, processor := range p.processors {
		if err := processor.CheckReady(); err != nil {
			logrus.Errorf("Processor %s not ready: %v", processor.Name(), err)
			p.setStatus("failed")
			return types.NewPipelineError("start", fmt.Errorf("processor %s: %w", processor.Name(), err))
		}
	}

	// 启动错误处理goroutine
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.handleErrors(ctx, errChan, stop)
	}()

	// 2. 前一个stage处理器的输出直接传递给下一个stage的处理器
	input := p.source.Output()
	for _, proc := range p.processors {
		logrus.Debugf("Starting processor at stage: %v", proc.Stage())
		out, err := proc.Process(ctx, input, &p.wg)
		if err != nil {
			logrus.Errorf("Failed to start processor at stage %v: %v", proc.Stage(), err)
			p.setStatus("failed")
			return types.NewPipelineError("start", fmt.Errorf("failed to start processor %s: %w", proc.Name(), err))
		}
		input = out
	}
	logrus.Info("All processors have started successfully")

	// 3. 处理器就绪后，再启动sink
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(p.done)
		if err := p.sink.Consume(ctx, input); err != nil {
			logrus.Errorf("Sink error: %v", err)
			select {
			case errChan <- fmt.Errorf("sink error: %w", err):
			default:
			}
		}
	}()

	// 4. 等待sink就绪
	select {
	case <-p.sink.Ready():
		logrus.Debug("Sink is ready")
	case <-time.After(5 * time.Second):
		p.setStatus("failed")
		return types.NewPipelineError("start", fmt.Errorf("timeout waiting for sink to be ready"))
	}

	// 5. 最后启动样本来源，开始数据流转
	if err := p.source.Start(ctx, &p.wg); err != nil {
		logrus.Errorf("Failed to start source: %v", err)
		p.setStatus("failed")
		return types.NewPipelineError("start", fmt.Errorf("failed to start source: %w", err))
	}
	logrus.Info("Sample source has started successfully")

	p.setStatus("running")
	logrus.Info("Pipeline is now running")
	return nil
}

func (p *pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.status = "stopping"
	logrus.Info("Pipeline stopping...")

	// 1. 先设置状态，防止新的goroutine启动
	p.running = false

	// 2. 通知错误处理 goroutine 退出，errChan 不关闭，避免迟到的发送panic
	close(p.stop)

	// 3. 等待所有处理器完成
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("All processors completed gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Timeout waiting for processors to complete")
	}

	// 4. 清理处理器资源
	for _, processor := range p.processors {
		if cleaner, ok := processor.(interface{ Cleanup() error }); ok {
			if err := cleaner.Cleanup(); err != nil {
				logrus.Errorf("Error cleaning up processor %s: %v", processor.Name(), err)
			}
		}
	}

	p.status = "stopped"
	logrus.WithField("uptime", time.Since(p.startTime).String()).Info("Pipeline stopped and cleaned up")
	return nil
}

func (p *pipeline) setStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *pipeline) handleErrors(ctx context.Context, errChan <-chan error, stop <-chan struct{}) {
	logrus.Debug("Starting error handler")
	for {
		select {
		case err := <-errChan:
			logrus.Errorf("Pipeline error: %v", err)
		case <-stop:
			logrus.Debug("Pipeline stopping, stopping error handler")
			return
		case <-ctx.Done():
			logrus.Debug("Context cancelled, stopping error handler")
			return
		}
	}
}

// GetStats 返回流水线运行状态
func (p *pipeline) GetStats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]interface{}, len(p.processors))
	for _, proc := range p.processors {
		stats[proc.Name()] = proc.Metrics().GetStats()
	}
	return map[string]interface{}{
		"status":     p.status,
		"uptime":     time.Since(p.startTime).String(),
		"processors": len(p.processors),
		"metrics":    stats,
	}
}

// GetMetrics 实现Pipeline接口的GetMetrics方法
func (p *pipeline) GetMetrics() map[string]*metrics.ProcessorMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[string]*metrics.ProcessorMetrics, len(p.processors))
	for _, proc := range p.processors {
		result[proc.Name()] = proc.Metrics()
	}
	return result
}

// SetConfig 实现Pipeline接口的SetConfig方法
func (p *pipeline) SetConfig(cfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return types.NewPipelineError("config", fmt.Errorf("cannot set config while pipeline is running"))
	}

	if err := cfg.Validate(); err != nil {
		return types.NewPipelineError("config", err)
	}

	p.config = cfg
	return nil
}

// Status 实现Pipeline接口的Status方法
func (p *pipeline) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
