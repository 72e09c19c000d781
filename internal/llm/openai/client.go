package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"Kluivert-Agent/internal/llm"
)

const (
	defaultModelName   = "gpt-4o-mini"
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
	defaultTimeout     = 120 * time.Second
)

// Config 描述了调用 OpenAI 兼容 Chat Completions API 所需的信息。
// BaseURL 留空时使用官方地址，填写后可接入其他兼容服务。
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client 通过 go-openai 调用大模型，支持工具调用。
type Client struct {
	api         *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
	topP        float32
}

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 OpenAI API Key")
	}

	clientCfg := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		api:         goopenai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		topP:        cfg.TopP,
	}, nil
}

// Model 返回当前使用的模型名称。
func (c *Client) Model() string { return c.model }

// Generate 调用 Chat Completions 接口并返回助手消息。
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("请求中没有消息")
	}

	request := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toWireMessages(req.Messages),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        c.topP,
	}
	if len(req.Tools) > 0 {
		request.Tools = toWireTools(req.Tools)
	}

	resp, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("请求 OpenAI 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI 响应中没有有效的 choices")
	}

	choice := resp.Choices[0]
	return &llm.Response{
		Message:      fromWireMessage(choice.Message),
		FinishReason: string(choice.FinishReason),
	}, nil
}

func toWireMessages(messages []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		wire := goopenai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, goopenai.ToolCall{
				ID:   call.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toWireTools(tools []llm.ToolDefinition) []goopenai.Tool {
	out := make([]goopenai.Tool, 0, len(tools))
	for _, tool := range tools {
		def := &goopenai.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if len(tool.Parameters) > 0 {
			def.Parameters = tool.Parameters
		} else {
			def.Parameters = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, goopenai.Tool{Type: goopenai.ToolTypeFunction, Function: def})
	}
	return out
}

func fromWireMessage(msg goopenai.ChatCompletionMessage) llm.Message {
	out := llm.Message{
		Role:    llm.Role(msg.Role),
		Content: msg.Content,
		Name:    msg.Name,
	}
	if out.Role == "" {
		out.Role = llm.RoleAssistant
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}
