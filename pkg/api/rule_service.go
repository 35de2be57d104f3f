package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/processor"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/ruleEngine"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
)

// RuleService 规则服务，规则表在启动时加载，运行期间只读
type RuleService struct {
	loader *ruleEngine.RuleLoader
}

// NewRuleService 创建一个新的规则服务
func NewRuleService(analyzer *processor.Analyzer) *RuleService {
	return &RuleService{
		loader: ruleEngine.NewRuleLoaderFromTables(analyzer.Tables()),
	}
}

// RuleView 带领域和表ID的规则
type RuleView struct {
	TableID string       `json:"table_id"`
	Domain  types.Domain `json:"domain"`
	*ruleEngine.Rule
}

// GetRuleConfigs 获取所有规则配置
func (rs *RuleService) GetRuleConfigs(c echo.Context) error {
	// 使用查询参数过滤规则
	domain := types.Domain(c.QueryParam("domain")) //指定领域
	state := c.QueryParam("state")                 //指定状态

	if domain != "" && !domain.Valid() {
		return HandleError(c, NewAPIError(ErrCodeBadRequest, fmt.Sprintf("未知的领域: %s", domain), types.ErrUnsupportedDomain))
	}

	rules := make([]RuleView, 0)
	for _, d := range []types.Domain{types.DomainEmail, types.DomainPacket} {
		if domain != "" && d != domain {
			continue
		}
		table, ok := rs.loader.GetTable(d)
		if !ok {
			continue
		}
		for _, rule := range table.Rules {
			// 过滤状态
			if state != "" && ruleState(rule) != state {
				continue
			}
			rules = append(rules, RuleView{TableID: table.TableID, Domain: d, Rule: rule})
		}
	}

	logrus.WithFields(logrus.Fields{
		"filtered_rules": len(rules),
		"domain":         domain,
		"state":          state,
		"operation":      "filter_rules",
	}).Debug("过滤规则")

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取规则配置成功",
		Data:    rules,
	})
}

// GetRuleConfig 获取特定规则配置
func (rs *RuleService) GetRuleConfig(c echo.Context) error {
	ruleID := c.Param("rule_id")

	rule, domain, ok := rs.loader.GetRule(ruleID)
	if !ok {
		return HandleError(c, NewRuleNotFoundError(ruleID))
	}
	table, _ := rs.loader.GetTable(domain)

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取规则配置成功",
		Data:    RuleView{TableID: table.TableID, Domain: domain, Rule: rule},
	})
}

// ValidateRule 验证规则有效性，不修改当前规则表
func (rs *RuleService) ValidateRule(c echo.Context) error {
	var rule ruleEngine.Rule
	if err := c.Bind(&rule); err != nil {
		return HandleError(c, NewInvalidRequestError(err))
	}

	if err := validateRule(&rule); err != nil {
		return HandleError(c, NewRuleValidationError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "规则验证通过",
		Data:    rule,
	})
}

// validateRule 验证规则的有效性
func validateRule(rule *ruleEngine.Rule) error {
	if rule.RuleID == "" {
		rule.RuleID = "validate"
	}

	// 借用规则表校验权重、标签、状态等字段
	table := &ruleEngine.RuleTable{TableID: "validate", Domain: types.DomainPacket, Rules: []*ruleEngine.Rule{rule}}
	if err := table.Validate(); err != nil {
		return err
	}

	if rule.Pattern != "" {
		return processor.ValidatePattern(rule.Pattern)
	}
	return processor.ValidateExpression(rule.Expression)
}

func ruleState(rule *ruleEngine.Rule) string {
	if rule.Enabled() {
		return ruleEngine.StateEnable
	}
	return ruleEngine.StateDisable
}
