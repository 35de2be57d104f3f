package ruleEngine

import (
	"fmt"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
)

const (
	StateEnable  = "enable"
	StateDisable = "disable"
)

// Rule 表示一条评分规则
type Rule struct {
	RuleID      string `yaml:"rule_id" json:"rule_id"`         // 规则ID
	State       string `yaml:"state" json:"state"`             // 规则状态 enable/disable，为空视为enable
	Pattern     string `yaml:"pattern" json:"pattern"`         // 正则模式，大小写不敏感，任意位置命中
	Expression  string `yaml:"expression" json:"expression"`   // CEL表达式，变量为text，与Pattern二选一
	Weight      int    `yaml:"weight" json:"weight"`           // 命中后累加的分值
	Label       string `yaml:"label" json:"label"`             // 命中后输出的标签
	Description string `yaml:"description" json:"description"` // 规则描述
}

// Enabled 规则是否启用
func (r *Rule) Enabled() bool {
	return r.State != StateDisable
}

// RuleTable 表示一个领域的有序规则表
// 规则顺序决定标签的输出顺序，不影响总分
type RuleTable struct {
	TableID string       `yaml:"table_id" json:"table_id"` // 规则表ID
	Domain  types.Domain `yaml:"domain" json:"domain"`     // 所属领域 email/packet
	Rules   []*Rule      `yaml:"rules" json:"rules"`       // 有序规则列表
}

// Validate 校验规则表
func (t *RuleTable) Validate() error {
	if !t.Domain.Valid() {
		return types.NewRuleTableError(t.TableID, "", fmt.Errorf("%w: %q", types.ErrUnsupportedDomain, t.Domain))
	}
	if len(t.Rules) == 0 {
		return types.NewRuleTableError(t.TableID, "", types.ErrEmptyRuleTable)
	}

	ids := make(map[string]bool, len(t.Rules))
	labels := make(map[string]bool, len(t.Rules))
	for i, rule := range t.Rules {
		if rule == nil {
			return types.NewRuleTableError(t.TableID, "", fmt.Errorf("rule #%d is nil", i))
		}
		if rule.RuleID == "" {
			return types.NewRuleTableError(t.TableID, "", fmt.Errorf("rule #%d has no rule_id", i))
		}
		if ids[rule.RuleID] {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("duplicate rule_id"))
		}
		ids[rule.RuleID] = true

		if rule.State != "" && rule.State != StateEnable && rule.State != StateDisable {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("state must be enable or disable, got %q", rule.State))
		}
		if rule.Weight <= 0 {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("weight must be positive, got %d", rule.Weight))
		}
		if rule.Label == "" {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("label is required"))
		}
		// 标签用于反查规则，同一张表内不允许重复
		if labels[rule.Label] {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("duplicate label %q", rule.Label))
		}
		labels[rule.Label] = true

		if rule.Pattern == "" && rule.Expression == "" {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("pattern or expression is required"))
		}
		if rule.Pattern != "" && rule.Expression != "" {
			return types.NewRuleTableError(t.TableID, rule.RuleID, fmt.Errorf("pattern and expression are mutually exclusive"))
		}
	}
	return nil
}
