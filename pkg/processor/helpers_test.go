package processor

import (
	"testing"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/stretchr/testify/require"
)

// newTestAnalyzer 创建不等待、固定种子的编排器
func newTestAnalyzer(t *testing.T, seed uint64) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(AnalyzerOptions{
		Generator: GeneratorOptions{
			Seed:          &seed,
			WarningChance: DefaultWarningChance,
		},
		Metrics: metrics.NewAnalyzerMetrics(),
	})
	require.NoError(t, err)
	return analyzer
}

func seedPtr(seed uint64) *uint64 {
	return &seed
}
