// Package metrics holds local text features used by telemetry and the
// Prometheus collectors for agent runs, tool calls and model calls.
package metrics
