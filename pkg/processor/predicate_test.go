package processor

import (
	"context"
	"testing"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/ruleEngine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试规则编译功能
func TestCompilePredicate(t *testing.T) {
	env, err := NewTextEnv()
	require.NoError(t, err)

	testCases := []struct {
		name    string
		rule    *ruleEngine.Rule
		wantErr bool
	}{
		{
			name: "正则模式",
			rule: &ruleEngine.Rule{RuleID: "p", Pattern: `bit\.ly|tinyurl`, Weight: 1, Label: "P"},
		},
		{
			name: "CEL表达式",
			rule: &ruleEngine.Rule{RuleID: "e", Expression: `size(text) > 10`, Weight: 1, Label: "E"},
		},
		{
			name:    "非法正则",
			rule:    &ruleEngine.Rule{RuleID: "bad", Pattern: `(unclosed`, Weight: 1, Label: "B"},
			wantErr: true,
		},
		{
			name:    "非布尔表达式",
			rule:    &ruleEngine.Rule{RuleID: "int", Expression: `size(text)`, Weight: 1, Label: "I"},
			wantErr: true,
		},
		{
			name:    "未声明变量",
			rule:    &ruleEngine.Rule{RuleID: "var", Expression: `body.contains("x")`, Weight: 1, Label: "V"},
			wantErr: true,
		},
		{
			name:    "空规则",
			rule:    nil,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			predicate, err := CompilePredicate(env, tc.rule)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, predicate)
		})
	}
}

// 测试文本谓词的匹配语义：大小写不敏感，任意位置命中
func TestTextPredicateMatch(t *testing.T) {
	env, err := NewTextEnv()
	require.NoError(t, err)

	predicate, err := CompilePredicate(env, &ruleEngine.Rule{
		RuleID: "malware", Pattern: "malware|trojan|backdoor", Weight: 50, Label: "Malware Signature Detected",
	})
	require.NoError(t, err)
	assert.Equal(t, `text.matches("(?i)malware|trojan|backdoor")`, predicate.Expression())

	testCases := []struct {
		text string
		want bool
	}{
		{"MALWARE beacon", true},
		{"found a Trojan in /tmp", true},
		{"xbackdoorx", true},
		{"clean traffic", false},
		{"", false},
	}
	for _, tc := range testCases {
		matched, err := predicate.Match(context.Background(), tc.text)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, matched, tc.text)
	}
}

func TestTextPredicateCanceledContext(t *testing.T) {
	env, err := NewTextEnv()
	require.NoError(t, err)

	digits := "[0, 1, 2, 3, 4, 5, 6, 7, 8, 9]"
	predicate, err := CompilePredicate(env, &ruleEngine.Rule{
		RuleID:     "nested",
		Expression: digits + ".all(a, " + digits + ".all(b, " + digits + ".all(c, size(text) >= 0)))",
		Weight:     1,
		Label:      "Nested",
	})
	require.NoError(t, err)

	matched, err := predicate.Match(context.Background(), "abc")
	assert.NoError(t, err)
	assert.True(t, matched)

	// 已取消的ctx会在推导式中途中断求值
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = predicate.Match(ctx, "abc")
	assert.Error(t, err)
}

func TestValidateExpression(t *testing.T) {
	assert.NoError(t, ValidateExpression(`text.contains("nmap")`))
	assert.Error(t, ValidateExpression(""))
	assert.Error(t, ValidateExpression(`text +`))
	assert.ErrorContains(t, ValidateExpression(`size(text)`), "布尔")

	assert.NoError(t, ValidatePattern(`dns exfiltration|dns tunneling`))
	assert.Error(t, ValidatePattern(""))
	assert.Error(t, ValidatePattern(`[a-`))
}

func TestCompileTableSkipsDisabled(t *testing.T) {
	env, err := NewTextEnv()
	require.NoError(t, err)

	table := ruleEngine.DefaultPacketTable()
	table.Rules[0].State = ruleEngine.StateDisable

	predicates, err := CompileTable(env, table)
	require.NoError(t, err)
	assert.Len(t, predicates, 6)
	assert.Equal(t, "packet_port_scan", predicates[0].Rule.RuleID)
}
