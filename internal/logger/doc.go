// Package logger builds the zap loggers used by the CLI and server.
package logger
