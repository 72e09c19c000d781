// Package api exposes the agent over HTTP: a chat turn, a single autonomous
// iteration and session initialization, plus health and Prometheus endpoints.
package api
