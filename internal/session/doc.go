// Package session 负责构建智能体会话并执行单轮交互。Factory 把大模型、
// 工具、检查点记忆与钱包组装成 Session，RunTurn 把一次流式交互归并为文本。
package session
