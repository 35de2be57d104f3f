package ruleEngine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// RuleLoader 负责加载和管理规则表，每个领域一张表
type RuleLoader struct {
	tables map[types.Domain]*RuleTable
}

// NewRuleLoader 创建一个空的规则加载器
func NewRuleLoader() *RuleLoader {
	return &RuleLoader{
		tables: make(map[types.Domain]*RuleTable),
	}
}

// NewDefaultRuleLoader 创建预置内置规则表的加载器
func NewDefaultRuleLoader() *RuleLoader {
	rl := NewRuleLoader()
	rl.tables[types.DomainEmail] = DefaultEmailTable()
	rl.tables[types.DomainPacket] = DefaultPacketTable()
	return rl
}

// NewRuleLoaderFromTables 用已加载的规则表构建只读查询用的加载器
func NewRuleLoaderFromTables(tables map[types.Domain]*RuleTable) *RuleLoader {
	rl := NewRuleLoader()
	for domain, table := range tables {
		rl.tables[domain] = table
	}
	return rl
}

// LoadRuleFromFile 从文件加载规则表，YAML和JSON格式均可
func (rl *RuleLoader) LoadRuleFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read rule file %s: %w", filePath, err)
	}

	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse rule file %s: %w", filePath, err)
	}
	if table.TableID == "" {
		table.TableID = filepath.Base(filePath)
	}

	if err := table.Validate(); err != nil {
		return err
	}

	// 同一领域后加载的表覆盖先加载的表
	if old, exists := rl.tables[table.Domain]; exists {
		logrus.WithFields(logrus.Fields{
			"domain":    table.Domain,
			"old_table": old.TableID,
			"new_table": table.TableID,
		}).Info("rule table replaced")
	}
	rl.tables[table.Domain] = &table
	return nil
}

// LoadRulesFromDirectory 从目录加载所有规则表
func (rl *RuleLoader) LoadRulesFromDirectory(dirPath string) error {
	files, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("read rule directory %s: %w", dirPath, err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch filepath.Ext(file.Name()) {
		case ".yaml", ".yml", ".json":
			if err := rl.LoadRuleFromFile(filepath.Join(dirPath, file.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetTable 获取指定领域的规则表
func (rl *RuleLoader) GetTable(domain types.Domain) (*RuleTable, bool) {
	table, exists := rl.tables[domain]
	return table, exists
}

// GetRule 根据规则ID获取规则及其所属领域
func (rl *RuleLoader) GetRule(ruleID string) (*Rule, types.Domain, bool) {
	for domain, table := range rl.tables {
		for _, rule := range table.Rules {
			if rule.RuleID == ruleID {
				return rule, domain, true
			}
		}
	}
	return nil, "", false
}
