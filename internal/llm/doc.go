// Package llm contains the provider-neutral message model used to talk to
// large language models. Providers live in subpackages and translate these
// types to their wire formats, including tool declarations and tool calls.
package llm
