package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/mdobak/go-xerrors"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/afero"
)

// AuditEntry records a certificate authority operation that changes
// issued state: a signature, a revocation or a new revocation list.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Serial    *big.Int  `json:"serial,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	Details   string    `json:"details,omitempty"`
}

const (
	LevelTrace = slog.Level(-8)
	LevelAudit = slog.Level(16)

	OperationSign      = "sign"
	OperationRevoke    = "revoke"
	OperationSignCRL   = "sign_crl"
	OperationOCSP      = "ocsp_response"
	OperationSelfSign  = "self_sign"
	OperationSignCSR   = "sign_csr"
	OperationSignSPKAC = "sign_spkac"
)

type Logger struct {
	logger *slog.Logger
}

// DiscardLogger drops everything. Used by library callers that have not
// configured logging.
func DiscardLogger() *Logger {
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

// NewLogger writes JSON records to logFile. At debug level, records are
// also written as text to stdout.
func NewLogger(level slog.Level, logFile afero.File) *Logger {

	var logger *slog.Logger
	var out io.Writer = io.Discard
	if logFile != nil {
		out = logFile
	}

	logfileHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	if level == slog.LevelDebug {

		textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceAttr,
		})

		logger = slog.New(
			slogmulti.Fanout(logfileHandler, textHandler),
		)

	} else {

		logger = slog.New(logfileHandler)
	}

	return &Logger{
		logger: logger,
	}
}

// NewWriterLogger logs JSON records to w. Used by tests and the CLI when
// output goes somewhere other than a file.
func NewWriterLogger(level slog.Level, w io.Writer) *Logger {
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceAttr,
		})),
	}
}

// ParseLevel maps a config string to a slog level. Unknown names log at info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug
func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Debugf(message string, args ...any) {
	l.logger.Debug(fmt.Sprintf(message, args...))
}

// Info
func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Infof(message string, args ...any) {
	l.logger.Info(fmt.Sprintf(message, args...))
}

// Warn
func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// Error
func (l *Logger) Error(err error, args ...any) {
	if l == nil || l.logger == nil {
		// Error occurred before the logger was
		// initialized
		slog.Error(err.Error(), args...)
		return
	}
	xerr := xerrors.New(err)
	l.logger.Error(err.Error(), append([]any{slog.Any("error", xerr)}, args...)...)
}

func (l *Logger) Errorf(message string, args ...any) {
	l.logger.Error(fmt.Sprintf(message, args...))
}

// MaybeError logs a recoverable error as a warning.
func (l *Logger) MaybeError(err error, args ...any) {
	l.logger.Warn(err.Error(), args...)
}

// Audit logs a certificate authority operation with standardized fields
// so issuance history can be processed by external systems.
func (l *Logger) Audit(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	attrs := []slog.Attr{
		slog.Time("timestamp", entry.Timestamp),
		slog.String("operation", entry.Operation),
		slog.String("subject", entry.Subject),
		slog.String("issuer", entry.Issuer),
	}
	if entry.Serial != nil {
		attrs = append(attrs, slog.String("serial", entry.Serial.Text(16)))
	}
	if entry.Details != "" {
		attrs = append(attrs, slog.String("details", entry.Details))
	}
	l.logger.LogAttrs(context.TODO(), LevelAudit, "audit_log", attrs...)
}
