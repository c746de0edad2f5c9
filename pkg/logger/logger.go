package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logger used by every server component.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})

	WithModule(name string) Logger
	WithFields(fields map[string]interface{}) Logger
}

// NewLogger builds a zap-backed logger writing to stderr and, when file is
// non-empty, to that file as well. Unknown levels fall back to info.
func NewLogger(level, file string) Logger {
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			sinks = append(sinks, zapcore.AddSync(f))
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.NewMultiWriteSyncer(sinks...),
		parseLevel(level),
	)

	return &zapLogger{s: zap.New(core).Sugar()}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
func (l *zapLogger) Infof(format string, v ...interface{})  { l.s.Infof(format, v...) }
func (l *zapLogger) Warnf(format string, v ...interface{})  { l.s.Warnf(format, v...) }
func (l *zapLogger) Errorf(format string, v ...interface{}) { l.s.Errorf(format, v...) }
func (l *zapLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }

func (l *zapLogger) WithModule(name string) Logger {
	return &zapLogger{s: l.s.With("module", name)}
}

func (l *zapLogger) WithFields(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &zapLogger{s: l.s.With(args...)}
}

type ctxKey struct{}

// NewContext embeds the logger into ctx.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext extracts the logger from ctx, falling back to a default
// info-level logger when none was embedded.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return NewLogger("info", "")
}
