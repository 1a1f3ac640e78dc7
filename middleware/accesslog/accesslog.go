// Package accesslog logs one line per handled request. It wraps a
// handler rather than hooking the dispatcher, so it sees the response
// status and the handler's error.
package accesslog

import (
	"time"

	"github.com/ryanbekhen/kilat"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents the configuration for the access log.
type Config struct {
	// Logger receives the access lines. When nil, one is built from
	// the File settings below, or from stderr.
	Logger *zap.Logger

	// File enables rotated file output via lumberjack when non-empty.
	File       string
	MaxSizeMB  int // rotate after this many megabytes (default 100)
	MaxBackups int // old files to keep
	MaxAgeDays int // days to keep old files
}

// DefaultConfig logs to stderr with production encoding.
func DefaultConfig() Config {
	return Config{}
}

// New returns a handler decorator that logs method, path, status,
// latency, peer address, and the handler error, if any.
func New(config ...Config) func(kilat.Handler) kilat.Handler {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	logger := cfg.Logger
	if logger == nil {
		logger = buildLogger(cfg)
	}

	return func(next kilat.Handler) kilat.Handler {
		return func(req *kilat.RequestCtx, res *kilat.ResponseHandle) error {
			start := time.Now()
			err := next(req, res)
			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method.String()),
				zap.String("path", req.URI.Path()),
				zap.Int("status", res.Status()),
				zap.Duration("latency", latency),
			}
			if addr := req.Conn.RemoteAddr(); addr != nil {
				fields = append(fields, zap.String("remote", addr.String()))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch {
			case res.Status() >= 500 || err != nil:
				logger.Error("request", fields...)
			case res.Status() >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return err
		}
	}
}

// buildLogger assembles a zap logger for the configured sink. File
// output rotates through lumberjack.
func buildLogger(cfg Config) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	} else {
		sink, _, _ = zap.Open("stderr")
	}

	return zap.New(zapcore.NewCore(enc, sink, zap.InfoLevel))
}
