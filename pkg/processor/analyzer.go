package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/config"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/ruleEngine"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

// Analyzer 分析编排器，构建完成后只读，可并发使用
type Analyzer struct {
	emailScorer  *Scorer
	packetScorer *Scorer
	generator    *PacketGenerator
	latency      *LatencyPolicy
	clock        clockwork.Clock
	metrics      *metrics.AnalyzerMetrics
}

type AnalyzerOptions struct {
	EmailTable  *ruleEngine.RuleTable
	PacketTable *ruleEngine.RuleTable
	Scorer      ScorerOptions
	Generator   GeneratorOptions
	Latency     *LatencyPolicy  // 为空时不等待
	Clock       clockwork.Clock // 结果时间戳来源
	Metrics     *metrics.AnalyzerMetrics
}

func NewAnalyzer(opts AnalyzerOptions) (*Analyzer, error) {
	if opts.EmailTable == nil {
		opts.EmailTable = ruleEngine.DefaultEmailTable()
	}
	if opts.PacketTable == nil {
		opts.PacketTable = ruleEngine.DefaultPacketTable()
	}
	if opts.EmailTable.Domain != types.DomainEmail {
		return nil, fmt.Errorf("email table %s has domain %q: %w", opts.EmailTable.TableID, opts.EmailTable.Domain, types.ErrUnsupportedDomain)
	}
	if opts.PacketTable.Domain != types.DomainPacket {
		return nil, fmt.Errorf("packet table %s has domain %q: %w", opts.PacketTable.TableID, opts.PacketTable.Domain, types.ErrUnsupportedDomain)
	}
	if opts.Latency == nil {
		opts.Latency = NoLatency()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewAnalyzerMetrics()
	}
	opts.Scorer.Metrics = opts.Metrics

	emailScorer, err := NewScorer(opts.EmailTable, opts.Scorer)
	if err != nil {
		return nil, fmt.Errorf("build email scorer: %w", err)
	}
	packetScorer, err := NewScorer(opts.PacketTable, opts.Scorer)
	if err != nil {
		return nil, fmt.Errorf("build packet scorer: %w", err)
	}

	return &Analyzer{
		emailScorer:  emailScorer,
		packetScorer: packetScorer,
		generator:    NewPacketGenerator(opts.Generator),
		latency:      opts.Latency,
		clock:        opts.Clock,
		metrics:      opts.Metrics,
	}, nil
}

// NewAnalyzerFromConfig 按配置加载规则表并构建编排器
func NewAnalyzerFromConfig(cfg *config.Config, clock clockwork.Clock, m *metrics.AnalyzerMetrics) (*Analyzer, error) {
	loader := ruleEngine.NewDefaultRuleLoader()
	if cfg.RuleEngine.RuleDirectory != "" {
		if err := loader.LoadRulesFromDirectory(cfg.RuleEngine.RuleDirectory); err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}
	emailTable, _ := loader.GetTable(types.DomainEmail)
	packetTable, _ := loader.GetTable(types.DomainPacket)

	return NewAnalyzer(AnalyzerOptions{
		EmailTable:  emailTable,
		PacketTable: packetTable,
		Scorer: ScorerOptions{
			MatchTimeout:   cfg.Engine.MatchTimeout,
			MaxInputLength: cfg.Engine.MaxInputLength,
		},
		Generator: GeneratorOptions{
			Seed:          cfg.Generator.Seed,
			WarningChance: cfg.Generator.WarningChance,
			TimestampStep: cfg.Generator.TimestampStep,
		},
		Latency: NewLatencyPolicy(clock, cfg.Engine.EmailDelay, cfg.Engine.PacketDelay),
		Clock:   clock,
		Metrics: m,
	})
}

// Metrics 返回分析计数
func (a *Analyzer) Metrics() *metrics.AnalyzerMetrics {
	return a.metrics
}

// Tables 返回当前使用的规则表
func (a *Analyzer) Tables() map[types.Domain]*ruleEngine.RuleTable {
	return map[types.Domain]*ruleEngine.RuleTable{
		types.DomainEmail:  a.emailScorer.Table(),
		types.DomainPacket: a.packetScorer.Table(),
	}
}

// AnalyzeEmail 分析邮件文本
// 唯一可能的错误是模拟等待期间 ctx 被取消
func (a *Analyzer) AnalyzeEmail(ctx context.Context, text string) (*types.EmailResult, error) {
	if err := a.wait(ctx, types.DomainEmail); err != nil {
		return nil, err
	}
	start := time.Now()

	raw, labels := a.emailScorer.Score(ctx, text)
	score := ClampScore(raw)

	result := &types.EmailResult{
		AnalysisID:    uuid.NewString(),
		TotalScore:    score,
		Verdict:       ClassifyEmail(score),
		MatchedLabels: labels,
		AnalyzedAt:    a.clock.Now(),
	}

	a.metrics.IncrementEmailAnalyses()
	a.metrics.RecordVerdict(string(types.DomainEmail), string(result.Verdict))
	a.metrics.AddProcessingTime(time.Since(start))

	logrus.WithFields(logrus.Fields{
		"analysis_id": result.AnalysisID,
		"domain":      types.DomainEmail,
		"score":       result.TotalScore,
		"verdict":     result.Verdict,
		"labels":      len(result.MatchedLabels),
	}).Debug("email analyzed")

	return result, nil
}

// AnalyzePackets 分析流量文本
// 处理流程：
// 1. 规则打分
// 2. 生成合成数据包，只有命中规则时才允许随机升级为WARNING
// 3. 每个非SAFE记录加15分，并追加汇总标签
// 4. 截断到 [0,100] 后判定结论
func (a *Analyzer) AnalyzePackets(ctx context.Context, text string) (*types.PacketResult, error) {
	if err := a.wait(ctx, types.DomainPacket); err != nil {
		return nil, err
	}
	start := time.Now()

	ruleScore, labels := a.packetScorer.Score(ctx, text)
	packets := a.generator.Generate(text, len(labels) > 0)

	nonSafe := CountNonSafe(packets)
	contribution := types.ScoreContribution{
		RuleScore:      ruleScore,
		SyntheticBonus: nonSafe * NonSafePacketBonus,
		NonSafePackets: nonSafe,
	}
	if nonSafe > 0 {
		labels = append(labels, DirectConnectionLabel(nonSafe))
	}

	score := ClampScore(contribution.RuleScore + contribution.SyntheticBonus)
	verdict, pattern := ClassifyPacket(score)

	result := &types.PacketResult{
		AnalysisID:     uuid.NewString(),
		TotalScore:     score,
		Verdict:        verdict,
		MatchedLabels:  labels,
		TrafficPattern: pattern,
		Packets:        packets,
		Contribution:   contribution,
		AnalyzedAt:     a.clock.Now(),
	}

	a.metrics.IncrementPacketAnalyses()
	a.metrics.AddSyntheticPackets(len(packets))
	a.metrics.RecordVerdict(string(types.DomainPacket), string(result.Verdict))
	a.metrics.AddProcessingTime(time.Since(start))

	logrus.WithFields(logrus.Fields{
		"analysis_id":  result.AnalysisID,
		"domain":       types.DomainPacket,
		"score":        result.TotalScore,
		"rule_score":   contribution.RuleScore,
		"bonus":        contribution.SyntheticBonus,
		"verdict":      result.Verdict,
		"packet_count": len(packets),
	}).Debug("packets analyzed")

	return result, nil
}

// Analyze 按领域分派，供批量回放使用
func (a *Analyzer) Analyze(ctx context.Context, sample *types.Sample) (*types.Report, error) {
	report := &types.Report{SampleID: sample.ID, Domain: sample.Domain}
	switch sample.Domain {
	case types.DomainEmail:
		result, err := a.AnalyzeEmail(ctx, sample.Text)
		if err != nil {
			return nil, err
		}
		report.Email = result
	case types.DomainPacket:
		result, err := a.AnalyzePackets(ctx, sample.Text)
		if err != nil {
			return nil, err
		}
		report.Packet = result
	default:
		return nil, fmt.Errorf("sample %s: %w: %q", sample.ID, types.ErrUnsupportedDomain, sample.Domain)
	}
	return report, nil
}

func (a *Analyzer) wait(ctx context.Context, domain types.Domain) error {
	if err := a.latency.Wait(ctx, domain); err != nil {
		a.metrics.IncrementCanceled()
		return err
	}
	return nil
}
