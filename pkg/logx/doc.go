// Package logx is a small zerolog wrapper used across nomwatch.
//
// It provides a value-type Logger with functional fields, a console
// bootstrap logger, and a Service whose sinks and level can be swapped
// at runtime when the config reloads.
package logx
