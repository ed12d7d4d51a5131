package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The webhook handler sets delivery and issue identity once; everything downstream
// (dispatcher, credential refresh, comment call) logs with them for free.
type LogFields struct {
	DeliveryID     *string // X-GitHub-Delivery
	EventType      *string // X-GitHub-Event, e.g. "issues"
	InstallationID *int64
	Repository     *string // owner/name
	IssueNumber    *int
	Component      string // e.g. "issue-commenter.dispatcher"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.InstallationID != nil {
		result.InstallationID = next.InstallationID
	}
	if next.Repository != nil {
		result.Repository = next.Repository
	}
	if next.IssueNumber != nil {
		result.IssueNumber = next.IssueNumber
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{IssueNumber: logger.Ptr(42)})
func Ptr[T any](v T) *T {
	return &v
}
