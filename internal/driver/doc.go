// Package driver runs agent sessions in the two supported modes: Chat, one turn
// per user message, and Autonomous, a fixed prompt on a fixed interval until
// cancelled or a turn fails.
package driver
