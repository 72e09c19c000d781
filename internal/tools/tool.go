package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/llm"
)

// Handler 执行一次工具调用，args 为模型给出的 JSON 参数。
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool 是暴露给推理引擎的一个动作。
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Handler     Handler
}

// Definition 返回模型调用约定下的函数声明。
func (t Tool) Definition() llm.ToolDefinition {
	params := t.Parameters
	if len(params) == 0 {
		params = noParams
	}
	return llm.ToolDefinition{Name: t.Name, Description: t.Description, Parameters: params}
}

// Invoke 执行工具，失败时返回 TOOL_FAILURE。
func (t Tool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	if t.Handler == nil {
		return "", xerrors.New(xerrors.CodeToolFailure, fmt.Sprintf("工具 %s 未实现", t.Name))
	}
	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage(`{}`)
	}
	out, err := t.Handler(ctx, args)
	if err != nil {
		if _, ok := xerrors.From(err); ok {
			return "", err
		}
		return "", xerrors.Wrap(xerrors.CodeToolFailure, err, fmt.Sprintf("工具 %s 执行失败", t.Name),
			xerrors.WithMetadata("tool", t.Name))
	}
	return out, nil
}

// Set 是一组按名称索引的工具。
type Set struct {
	order []string
	tools map[string]Tool
}

// NewSet 组合多个工具，名称重复时返回错误。
func NewSet(groups ...[]Tool) (*Set, error) {
	s := &Set{tools: make(map[string]Tool)}
	for _, group := range groups {
		for _, tool := range group {
			if tool.Name == "" {
				return nil, errors.New("工具名称不能为空")
			}
			if _, exists := s.tools[tool.Name]; exists {
				return nil, fmt.Errorf("工具 %s 重复注册", tool.Name)
			}
			s.tools[tool.Name] = tool
			s.order = append(s.order, tool.Name)
		}
	}
	return s, nil
}

// Lookup 按名称查找工具。
func (s *Set) Lookup(name string) (Tool, bool) {
	if s == nil {
		return Tool{}, false
	}
	tool, ok := s.tools[name]
	return tool, ok
}

// Names 返回按注册顺序排列的工具名。
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// SortedNames 返回按字母排序的工具名。
func (s *Set) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Definitions 返回全部函数声明。
func (s *Set) Definitions() []llm.ToolDefinition {
	if s == nil {
		return nil
	}
	defs := make([]llm.ToolDefinition, 0, len(s.order))
	for _, name := range s.order {
		defs = append(defs, s.tools[name].Definition())
	}
	return defs
}

var noParams = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)

func decodeArgs(args json.RawMessage, out any) error {
	if err := json.Unmarshal(args, out); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "工具参数格式错误")
	}
	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("缺少参数 %s", name))
	}
	return nil
}
