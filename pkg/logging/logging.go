// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"path"
	"runtime"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger configures the global zerolog logger: human-readable console output when
// requested, a severity hook for downstream log aggregators, and a daily-rotating plain-text
// file sink under logsDir (empty disables the file sink).
func SetupLogger(version, logsDir string, debug, human bool) {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	writers := make([]io.Writer, 0, 2)
	if human {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		writers = append(writers, os.Stdout)
	}
	if logsDir != "" {
		writers = append(writers, newDailyRotatingWriter(logsDir))
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	log.Logger = log.Logger.Hook(googleSeverityHook{})
	log.Logger = log.With().
		Str("version", version).
		Str("goversion", runtime.Version()).
		Logger()
}

type googleSeverityHook struct{}

func (h googleSeverityHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	e.Str("severity", levelToSeverity(level).String())
}

// levelToSeverity converts a zerolog level to Google's severity enumeration, matching the
// convention used by downstream log aggregators in the rest of this codebase's lineage.
func levelToSeverity(level zerolog.Level) logging.Severity {
	switch level {
	case zerolog.DebugLevel:
		return logging.Debug
	case zerolog.WarnLevel:
		return logging.Warning
	case zerolog.ErrorLevel:
		return logging.Error
	case zerolog.FatalLevel:
		return logging.Alert
	case zerolog.PanicLevel:
		return logging.Emergency
	default:
		return logging.Info
	}
}

// dailyRotatingWriter swaps the underlying lumberjack sink's filename at UTC midnight so that
// each calendar day gets its own plain-text log file under dir, e.g. logs/watchdog-2026-07-30.log.
type dailyRotatingWriter struct {
	dir string

	mu      sync.Mutex
	day     string
	current *lumberjack.Logger
}

func newDailyRotatingWriter(dir string) *dailyRotatingWriter {
	_ = os.MkdirAll(dir, 0o755)
	return &dailyRotatingWriter{dir: dir}
}

func (w *dailyRotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if w.current == nil || today != w.day {
		if w.current != nil {
			_ = w.current.Close()
		}
		w.day = today
		w.current = &lumberjack.Logger{
			Filename:  path.Join(w.dir, "watchdog-"+today+".log"),
			MaxSize:   100, // MB
			MaxAge:    30,  // days
			MaxBackups: 7,
			Compress:  true,
		}
	}
	return w.current.Write(p)
}
