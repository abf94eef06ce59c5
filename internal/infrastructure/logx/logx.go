package logx

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	TraceIDKey   ctxKey = "trace_id"
)

var (
	logger *zap.Logger
	level  zap.AtomicLevel
)

func init() {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	level = zapCfg.Level

	var err error
	logger, err = zapCfg.Build(zap.AddCaller())
	if err != nil {
		panic(err)
	}
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

// SetLevel changes the level of every logger derived from L. Unknown levels are ignored.
func SetLevel(s string) {
	if s == "" {
		return
	}
	_ = level.UnmarshalText([]byte(strings.ToLower(s)))
}

// WithFields enriches logs with the request and trace IDs carried by ctx.
func WithFields(ctx context.Context) *zap.Logger {
	l := logger
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		l = l.With(zap.String("request_id", rid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok && tid != "" {
		l = l.With(zap.String("trace_id", tid))
	}
	return l
}
