package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for the authenticated subject.
	UserIDKey contextKey = "user_id"

	// TenantIDKey is the context key for the authenticated tenant.
	TenantIDKey contextKey = "tenant_id"

	// ServiceKey is the context key for the downstream service name.
	ServiceKey contextKey = "service"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUser adds the caller subject and tenant to the context.
func WithUser(ctx context.Context, userID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetUserID retrieves the caller subject from the context.
func GetUserID(ctx context.Context) string {
	if user, ok := ctx.Value(UserIDKey).(string); ok {
		return user
	}
	return ""
}

// GetTenantID retrieves the caller tenant from the context.
func GetTenantID(ctx context.Context) string {
	if tenant, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenant
	}
	return ""
}

// WithService adds the downstream service name to the context.
func WithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ServiceKey, service)
}

// GetService retrieves the downstream service name from the context.
func GetService(ctx context.Context) string {
	if service, ok := ctx.Value(ServiceKey).(string); ok {
		return service
	}
	return ""
}

// extractContextFields returns the context fields as attributes. Trace and
// span ids come from the active OpenTelemetry span, if any.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if user := GetUserID(ctx); user != "" {
		fields = append(fields, string(UserIDKey), user)
	}
	if tenant := GetTenantID(ctx); tenant != "" {
		fields = append(fields, string(TenantIDKey), tenant)
	}
	if service := GetService(ctx); service != "" {
		fields = append(fields, string(ServiceKey), service)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
		)
	}

	return fields
}
