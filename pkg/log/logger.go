package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stackHeaderSize fits "goroutine NNNNNNNNN [".
const stackHeaderSize = 32

var (
	Logger    zerolog.Logger
	stackPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, stackHeaderSize)
			return &buf
		},
	}
)

func init() {
	Logger = New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}, zerolog.InfoLevel)

	log.Logger = Logger
}

// New builds a logger writing to out that tags every event with the goroutine ID.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// goroutineID parses the current goroutine ID out of the stack header.
func goroutineID() string {
	bufPtr, ok := stackPool.Get().(*[]byte)
	if !ok {
		return "unknown"
	}
	defer stackPool.Put(bufPtr)

	buf := *bufPtr
	n := runtime.Stack(buf, false)

	const prefix = "goroutine "
	if n <= len(prefix) || string(buf[:len(prefix)]) != prefix {
		return "unknown"
	}

	end := len(prefix)
	for end < n && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == len(prefix) {
		return "unknown"
	}
	return string(buf[len(prefix):end])
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs and exits the process once the event is sent.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

// SetOutput redirects the logger, keeping its level.
func SetOutput(out io.Writer) {
	Logger = New(out, Logger.GetLevel())
	log.Logger = Logger
}
