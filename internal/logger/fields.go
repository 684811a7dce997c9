package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldResourceID is the structured log field key for the optimized file or version id.
	FieldResourceID = "resource_id"
	// FieldInvocationID is the structured log field key shared by all attempts of one optimize call.
	FieldInvocationID = "invocation_id"
	// FieldProvider is the structured log field key for the attempt backend.
	FieldProvider = "provider"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger.
// A nil logger is replaced with a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// OperationFields returns the fields identifying a single optimize invocation.
func OperationFields(resourceID, invocationID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldResourceID, Value: resourceID},
		StringField{Key: FieldInvocationID, Value: invocationID},
	)
}

// WithProvider tags every entry of the logger with the attempt backend name.
func WithProvider(logger *zap.Logger, provider string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldProvider, Value: provider})...)
}
