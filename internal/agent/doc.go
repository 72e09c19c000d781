// Package agent contains the reasoning engine behind every agent session. The
// engine binds a language model, a tool set, checkpointed memory and a system
// instruction, and exposes a single streaming operation whose output is a
// closed set of chunk types: model messages, tool results and bookkeeping.
package agent
