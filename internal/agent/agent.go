package agent

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"iter"
	"strings"
	"time"

	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/llm"
	"Kluivert-Agent/internal/memory"
	"Kluivert-Agent/internal/tools"
	"Kluivert-Agent/pkg/logger"
)

// defaultMaxSteps 是单次交互允许的模型调用次数上限。
const defaultMaxSteps = 25

// Engine 协调大模型与工具调用，是智能体的推理核心。
type Engine struct {
	model        llm.Client
	tools        *tools.Set
	saver        memory.Saver
	systemPrompt string
	maxSteps     int
	llmTimeout   time.Duration
	now          func() time.Time
}

// Option 定义可选的 Engine 配置。
type Option func(*Engine)

// WithSaver 设置会话记忆，未设置时使用进程内存储。
func WithSaver(saver memory.Saver) Option {
	return func(e *Engine) {
		if saver != nil {
			e.saver = saver
		}
	}
}

// WithSystemPrompt 设置每次调用模型时注入的系统指令。
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		e.systemPrompt = strings.TrimSpace(prompt)
	}
}

// WithMaxSteps 设置单次交互的最大模型调用次数。
func WithMaxSteps(steps int) Option {
	return func(e *Engine) {
		e.maxSteps = steps
	}
}

// WithLLMTimeout 设置调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout <= 0 {
			e.llmTimeout = 0
			return
		}
		e.llmTimeout = timeout
	}
}

// New 创建推理引擎。
func New(model llm.Client, toolset *tools.Set, opts ...Option) *Engine {
	e := &Engine{
		model:    model,
		tools:    toolset,
		maxSteps: defaultMaxSteps,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.saver == nil {
		e.saver = memory.NewMemorySaver()
	}
	if e.maxSteps <= 0 {
		e.maxSteps = defaultMaxSteps
	}
	return e
}

// Stream 执行一次交互：读取线程检查点，追加输入，然后循环调用模型并执行
// 其请求的工具，直到模型给出不含工具调用的回答。每一步之后保存检查点。
func (e *Engine) Stream(ctx context.Context, in Input, cfg RunConfig) iter.Seq2[StreamChunk, error] {
	return func(yield func(StreamChunk, error) bool) {
		if e.model == nil {
			yield(nil, xerrors.New(xerrors.CodeAgentInitialization, "未配置大模型客户端"))
			return
		}
		threadID := strings.TrimSpace(cfg.ThreadID)
		if threadID == "" {
			yield(nil, xerrors.New(xerrors.CodeInvalidArgument, "thread_id 不能为空"))
			return
		}

		cp, _, err := e.saver.Get(ctx, threadID)
		if err != nil {
			yield(nil, xerrors.Wrap(xerrors.CodeStoreUnavailable, err, "加载会话记忆失败"))
			return
		}
		history := append(cp.Messages, in.Messages...)
		step := cp.Step
		if !yield(NodeChunk{Node: "__start__", Step: step}, nil) {
			return
		}

		log := logger.Named("agent").With("thread_id", threadID)
		for calls := 0; ; calls++ {
			if calls >= e.maxSteps {
				yield(nil, xerrors.New(xerrors.CodeTurnExecution,
					fmt.Sprintf("超过最大推理步数 %d", e.maxSteps)))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			reply, err := e.generate(ctx, history)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(reply.ToolCalls) == 0 {
				history = append(history, reply)
				step++
				if err := e.checkpoint(ctx, threadID, history, step); err != nil {
					yield(nil, err)
					return
				}
				yield(AgentChunk{Messages: []llm.Message{reply}}, nil)
				return
			}

			// 带工具调用的助手消息只与其工具结果一起写入检查点。
			if !yield(AgentChunk{Messages: []llm.Message{reply}}, nil) {
				return
			}
			results := e.runTools(ctx, reply.ToolCalls)
			history = append(history, reply)
			history = append(history, results...)
			step += 2
			log.Debug("tools executed", "count", len(results), "step", step)
			if err := e.checkpoint(ctx, threadID, history, step); err != nil {
				yield(nil, err)
				return
			}
			if !yield(ToolsChunk{Messages: results}, nil) {
				return
			}
		}
	}
}

// Tools 返回已绑定的工具名称。
func (e *Engine) Tools() []string {
	return e.tools.Names()
}

func (e *Engine) generate(ctx context.Context, history []llm.Message) (llm.Message, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	if e.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: e.systemPrompt})
	}
	messages = append(messages, history...)

	llmCtx := ctx
	if e.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, e.llmTimeout)
		defer cancel()
	}

	resp, err := e.model.Generate(llmCtx, llm.Request{Messages: messages, Tools: e.tools.Definitions()})
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			return llm.Message{}, xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
		}
		return llm.Message{}, xerrors.Wrap(xerrors.CodeTurnExecution, err, "大模型推理失败")
	}
	if resp == nil {
		return llm.Message{}, xerrors.New(xerrors.CodeTurnExecution, "大模型返回空响应")
	}
	reply := resp.Message
	reply.Role = llm.RoleAssistant
	return reply, nil
}

// runTools 依次执行工具调用，工具失败会作为工具消息返回给模型。
func (e *Engine) runTools(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		content := e.invoke(ctx, call)
		results = append(results, llm.Message{
			Role:       llm.RoleTool,
			Name:       call.Name,
			ToolCallID: call.ID,
			Content:    content,
		})
	}
	return results
}

func (e *Engine) invoke(ctx context.Context, call llm.ToolCall) string {
	tool, ok := e.tools.Lookup(call.Name)
	if !ok {
		return fmt.Sprintf("Error: tool %s is not available", call.Name)
	}
	out, err := tool.Invoke(ctx, json.RawMessage(call.Arguments))
	if err != nil {
		logger.Named("agent").Warn("tool failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %s", err.Error())
	}
	return out
}

// checkpoint 在调用方取消后仍会完成写入，已经产生的对话不会只保存一半。
func (e *Engine) checkpoint(ctx context.Context, threadID string, history []llm.Message, step int) error {
	err := e.saver.Put(context.WithoutCancel(ctx), memory.Checkpoint{
		ThreadID:  threadID,
		Messages:  history,
		Step:      step,
		UpdatedAt: e.now(),
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStoreUnavailable, err, "保存会话记忆失败")
	}
	return nil
}
