// Package activity publishes the outcome of agent turns, mainly those produced
// by the autonomous loop, to the audit log and optionally to Redis or RabbitMQ.
package activity
