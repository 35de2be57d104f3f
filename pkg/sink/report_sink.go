package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

type ReportSinkOptions struct {
	AlertEndpoint string        // 高危报告上报地址，为空不上报
	AlertTimeout  time.Duration // 上报超时
	CaptureDir    string        // 流量报告的合成数据包写为pcap的目录，为空不写
}

// ReportSink 把分析报告逐行写为JSON
type ReportSink struct {
	writer  io.Writer
	closer  io.Closer
	encoder *json.Encoder
	opts    ReportSinkOptions
	client  *http.Client
	stats   *metrics.SinkMetrics
	mu      sync.Mutex
	ready   chan struct{}

	captures map[string]struct{} // 已写出的pcap文件名
}

func NewReportSink(w io.Writer, opts ReportSinkOptions) *ReportSink {
	if opts.AlertTimeout <= 0 {
		opts.AlertTimeout = 5 * time.Second
	}
	s := &ReportSink{
		writer:  w,
		encoder: json.NewEncoder(w),
		opts:    opts,
		client:  &http.Client{Timeout: opts.AlertTimeout},
		stats:   &metrics.SinkMetrics{},
		ready:   make(chan struct{}),

		captures: make(map[string]struct{}),
	}
	s.encoder.SetEscapeHTML(false)
	return s
}

// NewReportFileSink 创建写入文件的报告输出，Consume结束时关闭文件
func NewReportFileSink(filename string, opts ReportSinkOptions) (*ReportSink, error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}
	s := NewReportSink(f, opts)
	s.closer = f
	return s, nil
}

func (s *ReportSink) Consume(ctx context.Context, in <-chan *types.Job) error {
	logrus.Info("Starting report sink consumer")
	defer func() {
		if s.closer != nil {
			if err := s.closer.Close(); err != nil {
				logrus.Errorf("Failed to close report file: %v", err)
			}
		}
		logrus.Info("Report sink consumer stopped")
	}()

	if s.opts.CaptureDir != "" {
		if err := os.MkdirAll(s.opts.CaptureDir, 0755); err != nil {
			close(s.ready)
			return fmt.Errorf("create capture directory: %w", err)
		}
	}

	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			logrus.Debug("Report sink received context cancellation")
			return nil
		case job, ok := <-in:
			if !ok {
				logrus.Debug("Report sink input channel closed")
				return nil
			}
			if err := s.write(ctx, job); err != nil {
				s.stats.IncrementWriteErrors()
				logrus.Errorf("Failed to write report: %v", err)
				continue
			}
		}
	}
}

func (s *ReportSink) write(ctx context.Context, job *types.Job) error {
	if job.Report == nil {
		return fmt.Errorf("sample %s has no report", sampleID(job))
	}

	s.mu.Lock()
	err := s.encoder.Encode(job.Report)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.stats.IncrementReportsWritten()

	if packet := job.Report.Packet; packet != nil && s.opts.CaptureDir != "" && len(packet.Packets) > 0 {
		filename := filepath.Join(s.opts.CaptureDir, s.nextCaptureName(job.Report.SampleID))
		if err := WriteCaptureFile(filename, packet.Packets, packet.AnalyzedAt); err != nil {
			logrus.Errorf("Failed to write capture for %s: %v", job.Report.SampleID, err)
		}
	}

	if IsAlert(job.Report) {
		s.generateAlert(ctx, job.Report)
	}
	return nil
}

func (s *ReportSink) Ready() <-chan struct{} {
	return s.ready
}

func (s *ReportSink) GetStats() *metrics.SinkMetrics {
	return s.stats
}

// IsAlert 最高级别结论才告警
func IsAlert(report *types.Report) bool {
	if report.Email != nil && report.Email.Verdict == types.EmailPhishing {
		return true
	}
	return report.Packet != nil && report.Packet.Verdict == types.PacketIntrusion
}

func (s *ReportSink) generateAlert(ctx context.Context, report *types.Report) {
	var analysisID, verdict string
	var score int
	var labels []string
	if report.Email != nil {
		analysisID, verdict, score, labels = report.Email.AnalysisID, string(report.Email.Verdict), report.Email.TotalScore, report.Email.MatchedLabels
	} else {
		analysisID, verdict, score, labels = report.Packet.AnalysisID, string(report.Packet.Verdict), report.Packet.TotalScore, report.Packet.MatchedLabels
	}

	// 告警ID：领域_样本ID_时间戳
	alertID := fmt.Sprintf("%s_%s_%d", report.Domain, report.SampleID, time.Now().UnixNano())

	alertInfo := map[string]interface{}{
		"alert_id":    alertID,
		"alert_time":  time.Now(),
		"analysis_id": analysisID,
		"sample_id":   report.SampleID,
		"domain":      report.Domain,
		"verdict":     verdict,
		"score":       score,
		"labels":      strings.Join(labels, "; "),
	}

	// 记录本地日志
	logrus.WithFields(logrus.Fields(alertInfo)).Warn("告警信息")

	if s.opts.AlertEndpoint == "" {
		return
	}

	jsonData, err := json.Marshal(alertInfo)
	if err != nil {
		logrus.Errorf("Failed to marshal alert info: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.AlertEndpoint, bytes.NewReader(jsonData))
	if err != nil {
		logrus.Errorf("Failed to create HTTP request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logrus.Errorf("Failed to send alert: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logrus.Errorf("Alert server returned non-200 status code: %d", resp.StatusCode)
		return
	}

	logrus.Debugf("Alert successfully sent to %s", s.opts.AlertEndpoint)
}

func sampleID(job *types.Job) string {
	if job.Sample == nil {
		return ""
	}
	return job.Sample.ID
}

// nextCaptureName 同一样本ID重复出现时依次加 -2、-3 后缀，避免覆盖
func (s *ReportSink) nextCaptureName(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := captureFilename(id)
	base := strings.TrimSuffix(name, ".pcap")
	for n := 2; ; n++ {
		if _, used := s.captures[name]; !used {
			break
		}
		name = fmt.Sprintf("%s-%d.pcap", base, n)
	}
	s.captures[name] = struct{}{}
	return name
}

// captureFilename 样本ID中的上级目录和路径分隔符替换为下划线
func captureFilename(id string) string {
	id = strings.NewReplacer("../", "_", "..\\", "_", "/", "_", "\\", "_", "..", "_").Replace(id)
	if id == "" {
		id = "sample"
	}
	return id + ".pcap"
}
