package safety

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrNilWriter is returned by AuditLogger.Log when the logger was constructed
// with a nil writer.
var ErrNilWriter = errors.New("audit logger: writer is nil")

// AuditEntry captures a single tool invocation for the audit log.
type AuditEntry struct {
	Timestamp time.Time
	Tool      string
	Params    map[string]any
	Result    string
	Duration  time.Duration
}

// AuditLogger writes AuditEntry records as newline-delimited JSON through a
// dedicated zap core. It is safe for concurrent use.
type AuditLogger struct {
	core zapcore.Core
}

// NewAuditLogger returns an AuditLogger that writes to w. If w is nil the
// returned logger is also nil; callers must check for nil before use.
func NewAuditLogger(w io.Writer) *AuditLogger {
	if w == nil {
		return nil
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.NanosDurationEncoder,
	})
	return &AuditLogger{
		core: zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel),
	}
}

// Log writes entry as a single JSON line with the keys timestamp, tool,
// params, result and duration_ns.
func (l *AuditLogger) Log(entry AuditEntry) error {
	if l == nil || l.core == nil {
		return ErrNilWriter
	}

	params := entry.Params
	if params == nil {
		params = map[string]any{}
	}

	return l.core.Write(zapcore.Entry{Level: zapcore.InfoLevel, Time: entry.Timestamp}, []zapcore.Field{
		zap.Time("timestamp", entry.Timestamp),
		zap.String("tool", entry.Tool),
		zap.Any("params", params),
		zap.String("result", entry.Result),
		zap.Int64("duration_ns", entry.Duration.Nanoseconds()),
	})
}
