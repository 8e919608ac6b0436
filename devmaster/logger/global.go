package logger

import (
	"log/slog"
	"time"
)

// LogGrade logs one grading run.
func LogGrade(challengeID string, success bool, duration time.Duration) {
	slog.Info("Submission graded",
		slog.String("type", string(TypeGrader)),
		slog.String("challenge_id", challengeID),
		slog.Bool("success", success),
		slog.Duration("took", duration))
}

// LogPayment logs payment events.
func LogPayment(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", string(TypePayment))}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogSystem logs system events.
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", string(TypeSystem))}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events.
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", string(TypeError)),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
