// Package logs reads the agent log file incrementally. Tail supports both a
// bounded look-back over the newest lines and offset-based forward reads so
// the CLI can follow the file without holding it open.
package logs
