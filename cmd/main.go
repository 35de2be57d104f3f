package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	rotates "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/api"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/config"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/pipeline"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/processor"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/share"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/sink"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/source"
)

func InitLogger(cfg *config.Config) error {
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	logrus.SetFormatter(formatter)

	var level logrus.Level
	var err error
	var logWriter *rotates.RotateLogs

	switch cfg.Log.Level {
	case "DEBUG":
		level = logrus.DebugLevel
	case "WARN":
		level = logrus.WarnLevel
	case "INFO":
		level = logrus.InfoLevel
	case "ERROR":
		level = logrus.ErrorLevel
	case "FATAL":
		level = logrus.FatalLevel
	case "PANIC":
		level = logrus.PanicLevel
	default:
		level = logrus.WarnLevel //默认
	}
	logrus.SetLevel(level)

	//1、判断文件路径和文件是否存在，不存在则创建
	if _, err := os.Stat(cfg.Log.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.Log.Dir, 0755); err != nil {
			return err
		}
	}
	logFileName := path.Join(cfg.Log.Dir, cfg.Log.Filename)

	maxAge := time.Duration(cfg.Log.MaxAge) * time.Hour
	rotationTime := time.Duration(cfg.Log.RotateTime) * time.Hour

	//2、日志切割功能，按时间来切割
	if runtime.GOOS == "windows" {
		logWriter, err = rotates.New(
			logFileName+".%Y%m%d%H%M",
			rotates.WithMaxAge(maxAge),             //文件最大保存时间
			rotates.WithRotationTime(rotationTime), //文件切割间隔
		)
	} else {
		logWriter, err = rotates.New(
			logFileName+".%Y%m%d%H%M",
			rotates.WithLinkName(logFileName),      //文件软链接
			rotates.WithMaxAge(maxAge),             //文件最大保存时间
			rotates.WithRotationTime(rotationTime), //文件切割间隔
		)
	}
	if err != nil {
		return err
	}

	//所有级别写入同一个切割文件
	lfHook := lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: logWriter,
		logrus.InfoLevel:  logWriter,
		logrus.WarnLevel:  logWriter,
		logrus.ErrorLevel: logWriter,
		logrus.FatalLevel: logWriter,
		logrus.PanicLevel: logWriter,
	}, &logrus.TextFormatter{})

	logrus.AddHook(lfHook)
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	batchFile := flag.String("batch", "", "批量回放的样本文件(.jsonl/.yaml)，为空时启动HTTP服务")
	outFile := flag.String("out", "reports.jsonl", "批量回放的报告输出文件")
	captureDir := flag.String("capture", "", "批量回放时把流量样本的合成数据包写为pcap的目录")
	replayLink := flag.String("replay", "", "分析分享链接中的流量文本并输出JSON结果")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logrus.Info("Starting threat training engine...")

	// 创建context用于控制生命周期
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clock := clockwork.NewRealClock()
	analyzerMetrics := metrics.NewAnalyzerMetrics()

	if *replayLink != "" {
		cfg.Engine.EmailDelay, cfg.Engine.PacketDelay = 0, 0
		analyzer, err := processor.NewAnalyzerFromConfig(cfg, clock, analyzerMetrics)
		if err != nil {
			logrus.Fatalf("Failed to create analyzer: %v", err)
		}
		if err := runReplay(ctx, analyzer, *replayLink); err != nil {
			logrus.Fatalf("Replay failed: %v", err)
		}
		return
	}

	if *batchFile != "" {
		// 批量回放不模拟等待
		cfg.Engine.EmailDelay, cfg.Engine.PacketDelay = 0, 0
		analyzer, err := processor.NewAnalyzerFromConfig(cfg, clock, analyzerMetrics)
		if err != nil {
			logrus.Fatalf("Failed to create analyzer: %v", err)
		}
		if err := runBatch(ctx, cfg, analyzer, *batchFile, *outFile, *captureDir); err != nil {
			logrus.Fatalf("Batch replay failed: %v", err)
		}
		return
	}

	analyzer, err := processor.NewAnalyzerFromConfig(cfg, clock, analyzerMetrics)
	if err != nil {
		logrus.Fatalf("Failed to create analyzer: %v", err)
	}
	if err := runServer(ctx, cfg, analyzer); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
	logrus.Info("Shutdown complete")
}

func runServer(ctx context.Context, cfg *config.Config, analyzer *processor.Analyzer) error {
	server := api.NewServer(cfg)
	server.RegisterAnalysisService(api.NewAnalysisService(analyzer, cfg.API.ShareBaseURL))
	server.RegisterRuleService(api.NewRuleService(analyzer))
	if err := server.RegisterMetrics(analyzer.Metrics()); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logrus.Info("Received shutdown signal, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

// runReplay 解析分享链接并把流量分析结果输出到标准输出
func runReplay(ctx context.Context, analyzer *processor.Analyzer, link string) error {
	text, ok, err := share.ParseLink(link)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("share link has no data or packets parameter")
	}

	result, err := analyzer.AnalyzePackets(ctx, text)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func runBatch(ctx context.Context, cfg *config.Config, analyzer *processor.Analyzer, batchFile, outFile, captureDir string) error {
	p := pipeline.NewPipeline()
	if err := p.SetConfig(cfg); err != nil {
		return err
	}

	src, err := source.NewSampleFileSource(batchFile, cfg.Pipeline.BufferSize)
	if err != nil {
		return err
	}
	p.SetSource(src)

	if err := p.AddProcessor(processor.NewSampleValidator()); err != nil {
		return err
	}
	if err := p.AddProcessor(processor.NewAnalysisProcessor(analyzer, cfg.Pipeline.WorkerCount)); err != nil {
		return err
	}

	reportSink, err := sink.NewReportFileSink(outFile, sink.ReportSinkOptions{
		AlertEndpoint: cfg.Pipeline.AlertEndpoint,
		CaptureDir:    captureDir,
	})
	if err != nil {
		return err
	}
	p.SetSink(reportSink)

	if err := p.Start(ctx); err != nil {
		return err
	}

	select {
	case <-p.Done():
		logrus.WithFields(logrus.Fields{
			"reports": reportSink.GetStats().ReportsWritten,
			"errors":  reportSink.GetStats().WriteErrors,
			"output":  outFile,
		}).Info("Batch replay finished")
	case <-ctx.Done():
		logrus.Info("Batch replay interrupted")
	}

	return p.Stop()
}
