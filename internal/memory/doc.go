// Package memory 提供按线程标识保存的会话检查点，使多次初始化的智能体共享同一段对话。
package memory
