package core

import "go.uber.org/zap"

type zapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger. Arguments are key/value pairs.
func NewZapLogger(log *zap.Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return zapLogger{log: log.Sugar()}
}

func (l zapLogger) Debug(msg string, args ...any) { l.log.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.log.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.log.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.log.Errorw(msg, args...) }
