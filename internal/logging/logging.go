// Package logging adapts the standard library logger to es.Logger.
package logging

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/getpup/pupsourcing/es"
)

// StdLogger writes es.Logger calls as "LEVEL msg key=value ..." lines.
type StdLogger struct {
	logger *log.Logger
	debug  bool
}

// Compile-time check that StdLogger implements es.Logger.
var _ es.Logger = (*StdLogger)(nil)

// New wraps l. Debug lines are dropped unless debug is true.
func New(l *log.Logger, debug bool) *StdLogger {
	return &StdLogger{logger: l, debug: debug}
}

// Debug logs at debug level.
func (s *StdLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	if s.debug {
		s.write("DEBUG", msg, args)
	}
}

// Info logs at info level.
func (s *StdLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	s.write("INFO", msg, args)
}

// Error logs at error level.
func (s *StdLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	s.write("ERROR", msg, args)
}

func (s *StdLogger) write(level, msg string, args []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v=(MISSING)", args[i])
		}
	}
	s.logger.Println(b.String())
}
