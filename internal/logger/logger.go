package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// New builds a zap logger: JSON in production, console otherwise.
func New(level, environment string) (*zap.Logger, error) {
	var logLevel zapcore.Level
	switch level {
	case "debug":
		logLevel = zapcore.DebugLevel
	case "warn":
		logLevel = zapcore.WarnLevel
	case "error":
		logLevel = zapcore.ErrorLevel
	default:
		logLevel = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if environment == "production" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), logLevel)
	return zap.New(core, zap.AddCaller()), nil
}

// WithComponent tags every entry with the component name
func WithComponent(log *zap.Logger, component string) *zap.Logger {
	return log.With(zap.String("component", component))
}

// AuditLogger writes audit events as structured log entries
type AuditLogger struct {
	log *zap.Logger
}

// NewAuditLogger creates an audit logger on top of log
func NewAuditLogger(log *zap.Logger) *AuditLogger {
	return &AuditLogger{log: WithComponent(log, "audit")}
}

// LogEvent implements domain.AuditLogger
func (a *AuditLogger) LogEvent(_ context.Context, event *domain.AuditEvent) {
	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Bool("success", event.Success),
		zap.Time("event_time", event.Timestamp),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Phone != "" {
		fields = append(fields, zap.String("phone", event.Phone))
	}
	if event.Channel != "" {
		fields = append(fields, zap.String("channel", string(event.Channel)))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if event.Success {
		a.log.Info("audit", fields...)
		return
	}
	a.log.Warn("audit", append(fields, zap.String("error", event.ErrorMsg))...)
}

var _ domain.AuditLogger = (*AuditLogger)(nil)
