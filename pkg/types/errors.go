package types

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput        = errors.New("input text is empty")
	ErrEmptyRuleTable    = errors.New("rule table is empty")
	ErrUnsupportedDomain = errors.New("unsupported domain")
	ErrProcessorNotReady = errors.New("processor not ready")
)

type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func NewPipelineError(stage string, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}

// RuleTableError 规则表校验或编译失败
type RuleTableError struct {
	Table  string
	RuleID string
	Err    error
}

func (e *RuleTableError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("rule table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("rule table %s, rule %s: %v", e.Table, e.RuleID, e.Err)
}

func (e *RuleTableError) Unwrap() error {
	return e.Err
}

func NewRuleTableError(table, ruleID string, err error) error {
	return &RuleTableError{Table: table, RuleID: ruleID, Err: err}
}
