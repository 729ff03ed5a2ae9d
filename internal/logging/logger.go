package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp layout written at the start of every log line.
// The recent activity feed parses chat log lines with it.
const TimeLayout = "2006-01-02 15:04:05"

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a console logger writing to stdout.
func New(mode string) (*Logger, error) {
	core := zapcore.NewCore(encoder(), zapcore.Lock(os.Stdout), level(mode))
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, nil
}

// NewFile builds a named logger that writes to <dir>/<file> and stdout.
func NewFile(name, dir, file, mode string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	lvl := level(mode)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder(), zapcore.AddSync(f), lvl),
		zapcore.NewCore(encoder(), zapcore.Lock(os.Stdout), lvl),
	)
	return &Logger{SugaredLogger: zap.New(core).Named(name).Sugar()}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func encoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " - "
	return zapcore.NewConsoleEncoder(cfg)
}

func level(mode string) zapcore.Level {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
