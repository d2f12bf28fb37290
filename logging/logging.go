// Package logging adapts github.com/luxfi/log for the ordering core.
package logging

import "github.com/luxfi/log"

// Logger is the structured logger every component accepts at construction.
type Logger = log.Logger

// NoOp returns a logger that discards everything, used when a caller does
// not supply one.
func NoOp() log.Logger {
	return log.NewNoOpLogger()
}

// OrNoOp returns l unless it is nil, in which case it returns a no-op logger.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOp()
	}
	return l
}
