// Package observability provides logging, metrics and health checks for
// the perimeter bridge.
package observability
