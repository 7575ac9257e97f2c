// Package obslog provides the timestamped logf() convention shared by
// the game server and the bridge.
package obslog

import (
	"log"
	"time"
)

const logDate string = `2006-01-02T15:04:05.000-07:00`

// Logger gates verbose output behind a flag, usable from either binary.
type Logger struct {
	Verbose bool
}

func New(verbose bool) *Logger {
	return &Logger{Verbose: verbose}
}

func (l *Logger) Logf(format string, args ...any) {
	if !l.Verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// Errorf always logs, regardless of verbosity, since it reports a
// genuine failure rather than a trace message.
func (l *Logger) Errorf(format string, args ...any) {
	log.Printf("%s | ERROR: "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}
