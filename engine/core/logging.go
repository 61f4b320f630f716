package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Ember 🔥 ",
				// the wrappers below add one frame
				CallerOffset: 1,
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// SetLogLevel changes the level of the engine logger. Unknown levels fall back to info.
func SetLogLevel(level LogLevel) {
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		getLogger().Warnf("unknown log level `%s`, using info", level)
		lvl = log.InfoLevel
	}
	getLogger().SetLevel(lvl)
}

// Logger is a child of the engine logger that prints fixed key/value pairs on every line.
// It takes the engine logger's level at creation time. A nil Logger logs through the engine
// logger.
type Logger struct {
	l *log.Logger
}

func WithFields(keyvals ...interface{}) *Logger {
	return &Logger{l: getLogger().With(keyvals...)}
}

func (lg *Logger) get() *log.Logger {
	if lg == nil {
		return getLogger().Logger
	}
	return lg.l
}

func (lg *Logger) Debug(msg string, args ...interface{}) {
	lg.get().Debugf(msg, args...)
}

func (lg *Logger) Info(msg string, args ...interface{}) {
	lg.get().Infof(msg, args...)
}

func (lg *Logger) Warn(msg string, args ...interface{}) {
	lg.get().Warnf(msg, args...)
}

func (lg *Logger) Error(msg string, args ...interface{}) {
	lg.get().Errorf(msg, args...)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
