package source

import (
	"context"
	"sync"
	"testing"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, filename string) ([]*types.Job, *SampleFileSource) {
	t.Helper()
	src, err := NewSampleFileSource(filename, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	require.NoError(t, src.Start(context.Background(), &wg))

	var jobs []*types.Job
	for job := range src.Output() {
		jobs = append(jobs, job)
	}
	wg.Wait()
	return jobs, src
}

func TestSampleFileSourceJSONL(t *testing.T) {
	jobs, src := collect(t, "testdata/samples.jsonl")
	require.Len(t, jobs, 5)

	assert.Equal(t, "mail-1", jobs[0].Sample.ID)
	assert.Equal(t, types.DomainEmail, jobs[0].Sample.Domain)
	assert.Equal(t, "pkt-1", jobs[1].Sample.ID)

	// 缺少id时按行号生成，空行也计入行号
	assert.Equal(t, "line-4", jobs[2].Sample.ID)

	// 无法解析的行带错误继续流转
	assert.True(t, jobs[3].HasError())
	assert.Equal(t, "line-5", jobs[3].Report.SampleID)

	assert.False(t, jobs[4].HasError())
	assert.Equal(t, uint64(5), src.GetStats().SamplesRead)
	assert.Equal(t, uint64(1), src.GetStats().ErrorCount)
}

func TestSampleFileSourceYAML(t *testing.T) {
	jobs, _ := collect(t, "testdata/samples.yaml")
	require.Len(t, jobs, 3)

	assert.Equal(t, "lesson-1", jobs[0].Sample.ID)
	assert.Equal(t, types.DomainPacket, jobs[1].Sample.Domain)
	assert.Contains(t, jobs[1].Sample.Text, "SYN flood")
	assert.Equal(t, "sample-3", jobs[2].Sample.ID)
}

func TestSampleFileSourceErrors(t *testing.T) {
	_, err := NewSampleFileSource("testdata/not_exist.jsonl", 1)
	assert.Error(t, err)

	src, err := NewSampleFileSource("sample_file_source.go", 1)
	require.NoError(t, err)
	var wg sync.WaitGroup
	assert.Error(t, src.Start(context.Background(), &wg))
}
