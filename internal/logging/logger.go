package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*zap.Logger
}

type Options struct {
	Level string
	// File, when set, receives JSON logs rotated by size
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func NewLogger(level string) (*Logger, error) {
	return New(Options{Level: level})
}

// New builds a production logger on stderr, teeing into a rotated file
// when one is configured
func New(opts Options) (*Logger, error) {
	config := zap.NewProductionConfig()

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	if opts.File == "" {
		logger, err := config.Build()
		if err != nil {
			return nil, err
		}
		return &Logger{logger}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	encoder := zapcore.NewJSONEncoder(config.EncoderConfig)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), config.Level),
		zapcore.NewCore(encoder, zapcore.AddSync(rotator), config.Level),
	)
	return &Logger{zap.New(core, zap.AddCaller())}, nil
}

// Nop discards everything
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestIDValue returns ctx carrying a request id
func WithRequestIDValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id carried by ctx
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

func (l *Logger) WithRequestID(ctx context.Context) *zap.Logger {
	if reqID, ok := RequestID(ctx); ok {
		return l.With(zap.String("request_id", reqID))
	}
	return l.Logger
}

// WithEventID tags every entry with the change event being handled
func (l *Logger) WithEventID(id string) *zap.Logger {
	return l.With(zap.String("event_id", id))
}
