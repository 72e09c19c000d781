// Package tools 定义智能体可调用的链上动作：钱包查询与转账、ERC20、
// WETH 包装、Pyth 价格查询以及测试网水龙头。每个工具以 JSON Schema
// 声明参数，由推理引擎按名称调度。
package tools
