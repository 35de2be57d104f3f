package processor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/cel-go/cel"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/ruleEngine"
	"github.com/rshravankumar10-design/threat_training_engine/pkg/types"
)

// TextVar 规则表达式中可用的唯一变量
const TextVar = "text"

// interruptCheckFrequency 推导式每迭代多少次检查一次取消信号
const interruptCheckFrequency = 100

// TextPredicate 编译后的文本谓词，编译完成后只读，可并发使用
type TextPredicate struct {
	Rule       *ruleEngine.Rule
	expression string
	program    cel.Program
}

// NewTextEnv 创建只声明 text 变量的CEL环境
func NewTextEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(TextVar, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env failed: %v", err)
	}
	return env, nil
}

// patternExpression 把正则模式转换为大小写不敏感的CEL匹配表达式
func patternExpression(pattern string) string {
	return fmt.Sprintf("%s.matches(%s)", TextVar, strconv.Quote("(?i)"+pattern))
}

// CompilePredicate 编译规则为文本谓词
// 处理流程：
// 1. 模式规则先用RE2校验，再转换为 text.matches 表达式
// 2. 编译并检查表达式，返回值必须是布尔型
// 3. 生成带中断检查的Program
func CompilePredicate(env *cel.Env, rule *ruleEngine.Rule) (*TextPredicate, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule is nil")
	}

	expression := rule.Expression
	if rule.Pattern != "" {
		if _, err := regexp.Compile("(?i)" + rule.Pattern); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %v", rule.Pattern, err)
		}
		expression = patternExpression(rule.Pattern)
	}

	program, err := compileProgram(env, expression)
	if err != nil {
		return nil, err
	}

	return &TextPredicate{
		Rule:       rule,
		expression: expression,
		program:    program,
	}, nil
}

func compileProgram(env *cel.Env, expression string) (cel.Program, error) {
	ast, iss := env.Compile(expression)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile expression failed: %v", iss.Err())
	}

	if !ast.OutputType().IsAssignableType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType().String())
	}

	program, err := env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.InterruptCheckFrequency(interruptCheckFrequency),
	)
	if err != nil {
		return nil, fmt.Errorf("create program failed: %v", err)
	}
	return program, nil
}

// Expression 返回实际执行的CEL表达式
func (p *TextPredicate) Expression() string {
	return p.expression
}

// Match 对文本求值，ctx 取消或超时会中断求值并返回错误
func (p *TextPredicate) Match(ctx context.Context, text string) (bool, error) {
	result, _, err := p.program.ContextEval(ctx, map[string]interface{}{
		TextVar: text,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate rule %s failed: %v", p.Rule.RuleID, err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %s result is not boolean: %v", p.Rule.RuleID, result.Value())
	}
	return matched, nil
}

// ValidateExpression 验证规则表达式是否有效，返回详细错误信息
func ValidateExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("表达式不能为空")
	}

	env, err := NewTextEnv()
	if err != nil {
		return fmt.Errorf("创建CEL环境失败: %v", err)
	}

	ast, iss := env.Compile(expression)
	if iss.Err() != nil {
		return fmt.Errorf("表达式编译错误: %v", iss.Err())
	}

	if !ast.OutputType().IsAssignableType(cel.BoolType) {
		return fmt.Errorf("表达式必须返回布尔值，当前返回: %s", ast.OutputType().String())
	}
	return nil
}

// ValidatePattern 验证正则模式是否有效
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("模式不能为空")
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return fmt.Errorf("正则表达式错误: %v", err)
	}
	return nil
}

// CompileTable 按表顺序编译所有启用的规则
func CompileTable(env *cel.Env, table *ruleEngine.RuleTable) ([]*TextPredicate, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	predicates := make([]*TextPredicate, 0, len(table.Rules))
	for _, rule := range table.Rules {
		if !rule.Enabled() {
			continue
		}
		predicate, err := CompilePredicate(env, rule)
		if err != nil {
			return nil, types.NewRuleTableError(table.TableID, rule.RuleID, err)
		}
		predicates = append(predicates, predicate)
	}
	return predicates, nil
}
