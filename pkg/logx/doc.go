// Package logx is recobot's structured logging layer.
//
// Logger wraps zerolog with call-site Field helpers. A Service owns the sinks
// (console, JSON file, and an optional chat sink for warnings) and can be
// re-applied at runtime when the config changes; loggers derived from it
// follow along.
package logx
