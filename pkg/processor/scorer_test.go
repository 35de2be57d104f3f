package processor

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/metrics"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/ruleEngine"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorerEmail(t *testing.T) {
	scorer, err := NewScorer(ruleEngine.DefaultEmailTable(), ScorerOptions{})
	require.NoError(t, err)

	testCases := []struct {
		name       string
		text       string
		wantScore  int
		wantLabels []string
	}{
		{
			name:       "无关键字",
			text:       "Hello team, lunch is at noon tomorrow.",
			wantScore:  0,
			wantLabels: []string{},
		},
		{
			name:       "空字符串",
			text:       "",
			wantScore:  0,
			wantLabels: []string{},
		},
		{
			name:       "紧急语言加短链接",
			text:       "Please verify your account urgently by clicking this link: bit.ly/xyz",
			wantScore:  35,
			wantLabels: []string{"Contains urgency language", "Uses suspicious shortened URLs"},
		},
		{
			name:       "大小写不敏感",
			text:       "CONGRATULATIONS, YOU WON!",
			wantScore:  35,
			wantLabels: []string{"Prize/reward claim detected"},
		},
		{
			name:       "外国域名",
			text:       "From: support@bank-secure.ru",
			wantScore:  25,
			wantLabels: []string{"Foreign domain origin detected"},
		},
		{
			name:      "全部命中，原始分不截断",
			text:      "urgent! from: a@b.ru please verify password at tinyurl.com/x, congratulations you won",
			wantScore: 125,
			wantLabels: []string{
				"Contains urgency language",
				"Uses suspicious shortened URLs",
				"Foreign domain origin detected",
				"Requests account verification",
				"Prize/reward claim detected",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, labels := scorer.Score(context.Background(), tc.text)
			assert.Equal(t, tc.wantScore, score)
			assert.Equal(t, tc.wantLabels, labels)
		})
	}
}

// 标签顺序与规则表顺序一致，与命中位置无关
func TestScorerLabelOrder(t *testing.T) {
	scorer, err := NewScorer(ruleEngine.DefaultPacketTable(), ScorerOptions{})
	require.NoError(t, err)

	forward := "nmap sweep, then syn flood, then dns tunneling"
	backward := "dns tunneling, then syn flood, then nmap sweep"

	want := []string{"DoS/DDoS Attack Signature", "Port Scanning Activity", "DNS Tunneling Detected"}
	for _, text := range []string{forward, backward} {
		score, labels := scorer.Score(context.Background(), text)
		assert.Equal(t, 115, score)
		assert.Equal(t, want, labels)
	}
}

// rce 为子串匹配，force/source 等单词也会命中
func TestScorerSubstringSemantics(t *testing.T) {
	scorer, err := NewScorer(ruleEngine.DefaultPacketTable(), ScorerOptions{})
	require.NoError(t, err)

	score, labels := scorer.Score(context.Background(), "brute force login")
	assert.Equal(t, 75, score)
	assert.Equal(t, []string{"Web Exploit Detected", "Brute Force Attempt"}, labels)
}

func TestScorerRuleErrorIsNoMatch(t *testing.T) {
	table := &ruleEngine.RuleTable{
		TableID: "errors",
		Domain:  types.DomainPacket,
		Rules: []*ruleEngine.Rule{
			{RuleID: "bad_int", Expression: `int(text) > 0`, Weight: 10, Label: "Numeric"},
			{RuleID: "nmap", Pattern: "nmap", Weight: 35, Label: "Port Scanning Activity"},
		},
	}
	m := metrics.NewAnalyzerMetrics()
	scorer, err := NewScorer(table, ScorerOptions{Metrics: m})
	require.NoError(t, err)

	score, labels := scorer.Score(context.Background(), "nmap -sS")
	assert.Equal(t, 35, score)
	assert.Equal(t, []string{"Port Scanning Activity"}, labels)
	assert.Equal(t, uint64(1), atomic.LoadUint64(&m.RuleErrors))
	assert.Equal(t, uint64(1), atomic.LoadUint64(&m.RuleMatches))
}

func TestScorerTimeoutDoesNotInterruptPattern(t *testing.T) {
	m := metrics.NewAnalyzerMetrics()
	scorer, err := NewScorer(ruleEngine.DefaultPacketTable(), ScorerOptions{MatchTimeout: time.Nanosecond, Metrics: m})
	require.NoError(t, err)

	// 正则规则的开销由RE2和输入长度限制，超时不会打断单次匹配
	score, labels := scorer.Score(context.Background(), "nmap malware")
	assert.Equal(t, 85, score)
	assert.Equal(t, []string{"Port Scanning Activity", "Malware Signature Detected"}, labels)
	assert.Equal(t, uint64(0), atomic.LoadUint64(&m.RuleErrors))
}

func TestScorerMaxInputLength(t *testing.T) {
	scorer, err := NewScorer(ruleEngine.DefaultPacketTable(), ScorerOptions{MaxInputLength: 32})
	require.NoError(t, err)

	// 关键字位于截断位置之后，不参与匹配
	text := strings.Repeat("x", 40) + " malware"
	score, labels := scorer.Score(context.Background(), text)
	assert.Equal(t, 0, score)
	assert.Empty(t, labels)
}

func TestScorerDisabledRule(t *testing.T) {
	table := ruleEngine.DefaultPacketTable()
	for _, rule := range table.Rules {
		if rule.RuleID == "packet_malware" {
			rule.State = ruleEngine.StateDisable
		}
	}
	scorer, err := NewScorer(table, ScorerOptions{})
	require.NoError(t, err)

	score, labels := scorer.Score(context.Background(), "malware backdoor trojan")
	assert.Equal(t, 0, score)
	assert.Empty(t, labels)
}

func TestNewScorerInvalidTable(t *testing.T) {
	_, err := NewScorer(&ruleEngine.RuleTable{TableID: "empty", Domain: types.DomainEmail}, ScorerOptions{})
	assert.ErrorIs(t, err, types.ErrEmptyRuleTable)

	_, err = NewScorer(&ruleEngine.RuleTable{
		TableID: "bad_regex",
		Domain:  types.DomainEmail,
		Rules:   []*ruleEngine.Rule{{RuleID: "r", Pattern: "(", Weight: 1, Label: "R"}},
	}, ScorerOptions{})
	var tableErr *types.RuleTableError
	assert.ErrorAs(t, err, &tableErr)
	assert.Equal(t, "r", tableErr.RuleID)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", truncateText("abc", 10))
	assert.Equal(t, "ab", truncateText("abc", 2))
	// "威" 占3字节，不能从中间截断
	assert.Equal(t, "a", truncateText("a威胁", 3))
	assert.Equal(t, "a威", truncateText("a威胁", 4))
}
