package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across the router. It is a thin
// wrapper around zap so that use cases can be tested with a no-op
// implementation.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

var _ Logger = (*loggerImpl)(nil)

type loggerImpl struct {
	zap *zap.Logger
}

// NewLogger creates a new logger.
// If isProduction is true, returns a production logger with JSON encoding.
// Otherwise, returns a development logger.
// If fileName is non-empty, the log output is additionally written to that file.
func NewLogger(isProduction bool, fileName string, logLevel string) (Logger, error) {
	level := zapcore.InfoLevel
	if logLevel != "" {
		parsedLevel, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return nil, err
		}
		level = parsedLevel
	}

	var config zap.Config
	if isProduction {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if fileName != "" {
		config.OutputPaths = append(config.OutputPaths, fileName)
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &loggerImpl{
		zap: zapLogger,
	}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

var _ Logger = (*NoOpLogger)(nil)

// NoOpLogger is a logger that discards all messages. Used in tests and as a
// fallback when no logger is configured.
type NoOpLogger struct{}

func (*NoOpLogger) Debug(msg string, fields ...zap.Field) {}

func (*NoOpLogger) Info(msg string, fields ...zap.Field) {}

func (*NoOpLogger) Warn(msg string, fields ...zap.Field) {}

func (*NoOpLogger) Error(msg string, fields ...zap.Field) {}
