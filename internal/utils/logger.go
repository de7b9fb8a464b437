package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// InitLogger configures the global logger to write JSON lines to a rotating
// log file. An empty file path keeps logging on stderr.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	var out io.Writer = os.Stderr
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger = zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}

// SetLogLevel changes the minimum level of the global logger. Unknown levels
// fall back to info.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	logger = logger.Level(lvl)
}

// SetLoggerForTest replaces the global logger. Tests use this to capture
// output; the logger is otherwise unexported.
func SetLoggerForTest(l zerolog.Logger) {
	logger = l
}

// Info logs at info level with alternating key/value pairs.
func Info(msg string, kv ...interface{}) {
	emit(logger.Info(), msg, kv)
}

// Warn logs at warn level with alternating key/value pairs.
func Warn(msg string, kv ...interface{}) {
	emit(logger.Warn(), msg, kv)
}

// Error logs at error level with alternating key/value pairs.
func Error(msg string, kv ...interface{}) {
	emit(logger.Error(), msg, kv)
}

func emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
