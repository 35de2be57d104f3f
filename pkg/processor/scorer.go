package processor

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/ruleEngine"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMatchTimeout   = 50 * time.Millisecond
	DefaultMaxInputLength = 64 * 1024
)

type ScorerOptions struct {
	MatchTimeout   time.Duration // 单条规则求值超时
	MaxInputLength int           // 超出部分在字符边界处截断
	Metrics        *metrics.AnalyzerMetrics
}

// Scorer 用一张规则表给文本打分
type Scorer struct {
	table      *ruleEngine.RuleTable
	predicates []*TextPredicate
	opts       ScorerOptions
}

func NewScorer(table *ruleEngine.RuleTable, opts ScorerOptions) (*Scorer, error) {
	env, err := NewTextEnv()
	if err != nil {
		return nil, err
	}
	predicates, err := CompileTable(env, table)
	if err != nil {
		return nil, err
	}

	if opts.MatchTimeout <= 0 {
		opts.MatchTimeout = DefaultMatchTimeout
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}

	return &Scorer{
		table:      table,
		predicates: predicates,
		opts:       opts,
	}, nil
}

// Table 返回打分使用的规则表
func (s *Scorer) Table() *ruleEngine.RuleTable {
	return s.table
}

// Score 按表顺序对每条启用的规则求值一次
// 命中的规则累加权重并按表顺序追加标签，返回未截断的原始分
// 求值失败或超时的规则按未命中处理
func (s *Scorer) Score(ctx context.Context, text string) (int, []string) {
	text = truncateText(text, s.opts.MaxInputLength)

	total := 0
	labels := make([]string, 0, len(s.predicates))
	for _, predicate := range s.predicates {
		matched, err := s.match(ctx, predicate, text)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"table":   s.table.TableID,
				"rule_id": predicate.Rule.RuleID,
				"error":   err,
			}).Warn("rule evaluation failed, treated as no match")
			if s.opts.Metrics != nil {
				s.opts.Metrics.IncrementRuleErrors()
			}
			continue
		}
		if matched {
			total += predicate.Rule.Weight
			labels = append(labels, predicate.Rule.Label)
		}
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.AddRuleMatches(len(labels))
	}
	return total, labels
}

// match 超时只在CEL推导式中被检查，单次 matches 调用不可中断
func (s *Scorer) match(ctx context.Context, predicate *TextPredicate, text string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.MatchTimeout)
	defer cancel()
	return predicate.Match(ctx, text)
}

// truncateText 截断到不超过 max 字节，且不切断多字节字符
func truncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	n := max
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
