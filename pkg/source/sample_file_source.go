package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// maxLineSize JSONL单行上限
const maxLineSize = 4 * 1024 * 1024

// corpusFile YAML语料文件格式
type corpusFile struct {
	Samples []types.Sample `yaml:"samples"`
}

// SampleFileSource 从JSONL或YAML语料文件读取训练样本
type SampleFileSource struct {
	filename string
	output   chan *types.Job
	stats    *metrics.SourceMetrics
}

func NewSampleFileSource(filename string, bufferSize int) (*SampleFileSource, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("failed to open sample file %s: %w", filename, err)
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}

	return &SampleFileSource{
		filename: filename,
		output:   make(chan *types.Job, bufferSize),
		stats:    &metrics.SourceMetrics{},
	}, nil
}

func (s *SampleFileSource) Start(ctx context.Context, wg *sync.WaitGroup) error {
	var read func(ctx context.Context) error
	switch strings.ToLower(filepath.Ext(s.filename)) {
	case ".yaml", ".yml":
		read = s.readYAML
	case ".jsonl", ".json", ".ndjson":
		read = s.readJSONL
	default:
		return fmt.Errorf("unsupported sample file format: %s", s.filename)
	}

	logrus.Infof("Started reading samples from file: %s", s.filename)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(s.output)

		if err := read(ctx); err != nil {
			s.stats.IncrementErrorCount()
			logrus.Errorf("Error reading samples from %s: %v", s.filename, err)
			return
		}
		logrus.Info("Reached end of sample file")
	}()

	return nil
}

func (s *SampleFileSource) readJSONL(ctx context.Context) error {
	f, err := os.Open(s.filename)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var sample types.Sample
		if err := json.Unmarshal([]byte(line), &sample); err != nil {
			// 解析失败的行带着错误报告继续流转，便于在报告中定位
			s.stats.IncrementErrorCount()
			job := &types.Job{Sample: &types.Sample{ID: fmt.Sprintf("line-%d", lineNo)}}
			job.Failed(types.NewPipelineError("decode", err))
			if !s.emit(ctx, job) {
				return ctx.Err()
			}
			continue
		}
		if sample.ID == "" {
			sample.ID = fmt.Sprintf("line-%d", lineNo)
		}

		s.stats.AddBytesProcessed(uint64(len(line)))
		if !s.emit(ctx, &types.Job{Sample: &sample}) {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (s *SampleFileSource) readYAML(ctx context.Context) error {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		return err
	}

	var corpus corpusFile
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return fmt.Errorf("parse yaml corpus: %w", err)
	}
	s.stats.AddBytesProcessed(uint64(len(data)))

	for i := range corpus.Samples {
		sample := corpus.Samples[i]
		if sample.ID == "" {
			sample.ID = fmt.Sprintf("sample-%d", i+1)
		}
		if !s.emit(ctx, &types.Job{Sample: &sample}) {
			return ctx.Err()
		}
	}
	return nil
}

func (s *SampleFileSource) emit(ctx context.Context, job *types.Job) bool {
	select {
	case s.output <- job:
		s.stats.IncrementSamplesRead()
		return true
	case <-ctx.Done():
		logrus.Info("Stopping sample reading due to context cancellation")
		return false
	}
}

func (s *SampleFileSource) Output() <-chan *types.Job {
	return s.output
}

func (s *SampleFileSource) GetStats() *metrics.SourceMetrics {
	return s.stats
}
