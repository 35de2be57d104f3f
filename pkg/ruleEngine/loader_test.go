package ruleEngine

import (
	"errors"
	"testing"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/stretchr/testify/assert"
)

// TestLoadRuleFromFile 测试从文件加载规则表
func TestLoadRuleFromFile(t *testing.T) {
	testCases := []struct {
		name          string
		filePath      string
		wantErr       bool
		expectedID    string
		expectedDom   types.Domain
		expectedCount int
	}{
		{
			name:          "加载YAML格式的邮件规则表",
			filePath:      "../../rules/email_rules.yaml",
			expectedID:    "email_default",
			expectedDom:   types.DomainEmail,
			expectedCount: 5,
		},
		{
			name:          "加载YAML格式的流量规则表",
			filePath:      "../../rules/packet_rules.yaml",
			expectedID:    "packet_default",
			expectedDom:   types.DomainPacket,
			expectedCount: 7,
		},
		{
			name:          "加载JSON格式的流量规则表",
			filePath:      "testdata/packet_custom.json",
			expectedID:    "packet_custom",
			expectedDom:   types.DomainPacket,
			expectedCount: 2,
		},
		{
			name:     "标签重复的规则表",
			filePath: "testdata/duplicate_label.yaml",
			wantErr:  true,
		},
		{
			name:     "加载不存在的文件",
			filePath: "../../rules/not_exist_file.yaml",
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loader := NewRuleLoader()
			err := loader.LoadRuleFromFile(tc.filePath)

			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)

			table, exists := loader.GetTable(tc.expectedDom)
			assert.True(t, exists)
			assert.Equal(t, tc.expectedID, table.TableID, "规则表ID不匹配")
			assert.Len(t, table.Rules, tc.expectedCount, "规则数量不匹配")
		})
	}
}

// TestRuleFilesMatchDefaults 规则文件与内置规则表保持一致
func TestRuleFilesMatchDefaults(t *testing.T) {
	loader := NewRuleLoader()
	assert.NoError(t, loader.LoadRulesFromDirectory("../../rules"))

	email, ok := loader.GetTable(types.DomainEmail)
	assert.True(t, ok)
	assert.Equal(t, DefaultEmailTable(), email)

	packet, ok := loader.GetTable(types.DomainPacket)
	assert.True(t, ok)
	assert.Equal(t, DefaultPacketTable(), packet)
}

func TestDefaultTables(t *testing.T) {
	email := DefaultEmailTable()
	assert.NoError(t, email.Validate())

	var weights []int
	for _, rule := range email.Rules {
		weights = append(weights, rule.Weight)
	}
	assert.Equal(t, []int{15, 20, 25, 30, 35}, weights)

	packet := DefaultPacketTable()
	assert.NoError(t, packet.Validate())
	assert.Len(t, packet.Rules, 7)
	for _, rule := range packet.Rules {
		assert.GreaterOrEqual(t, rule.Weight, 25)
		assert.LessOrEqual(t, rule.Weight, 50)
	}

	assert.Equal(t, "Malware Signature Detected", packet.Rules[2].Label)
	assert.Equal(t, 50, packet.Rules[2].Weight)
}

func TestRuleTableValidate(t *testing.T) {
	testCases := []struct {
		name  string
		table *RuleTable
		want  error
	}{
		{
			name:  "空规则表",
			table: &RuleTable{TableID: "empty", Domain: types.DomainEmail},
			want:  types.ErrEmptyRuleTable,
		},
		{
			name:  "未知领域",
			table: &RuleTable{TableID: "bad", Domain: "sms", Rules: []*Rule{{RuleID: "a", Pattern: "x", Weight: 1, Label: "A"}}},
			want:  types.ErrUnsupportedDomain,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Validate()
			assert.True(t, errors.Is(err, tc.want), "unexpected error: %v", err)

			var tableErr *types.RuleTableError
			assert.True(t, errors.As(err, &tableErr))
		})
	}

	invalid := []*Rule{
		{RuleID: "zero", Pattern: "x", Weight: 0, Label: "Zero"},
		{RuleID: "nolabel", Pattern: "x", Weight: 5},
		{RuleID: "nothing", Weight: 5, Label: "Nothing"},
		{RuleID: "both", Pattern: "x", Expression: "true", Weight: 5, Label: "Both"},
		{RuleID: "state", State: "paused", Pattern: "x", Weight: 5, Label: "State"},
	}
	for _, rule := range invalid {
		table := &RuleTable{TableID: "t", Domain: types.DomainPacket, Rules: []*Rule{rule}}
		assert.Error(t, table.Validate(), rule.RuleID)
	}
}

// TestGetRule 测试根据规则ID查找规则
func TestGetRule(t *testing.T) {
	loader := NewDefaultRuleLoader()

	rule, domain, exists := loader.GetRule("packet_dns_tunnel")
	assert.True(t, exists)
	assert.Equal(t, types.DomainPacket, domain)
	assert.Equal(t, "DNS Tunneling Detected", rule.Label)

	_, _, exists = loader.GetRule("not_exist")
	assert.False(t, exists)
}

func TestNewRuleLoaderFromTables(t *testing.T) {
	email := DefaultEmailTable()
	loader := NewRuleLoaderFromTables(map[types.Domain]*RuleTable{types.DomainEmail: email})

	table, ok := loader.GetTable(types.DomainEmail)
	assert.True(t, ok)
	assert.Same(t, email, table)

	_, ok = loader.GetTable(types.DomainPacket)
	assert.False(t, ok)

	rule, domain, exists := loader.GetRule("email_urgency")
	assert.True(t, exists)
	assert.Equal(t, types.DomainEmail, domain)
	assert.Equal(t, 15, rule.Weight)
}
