package llm

import "context"

type contextKey string

const operationKey contextKey = "llm_operation"

// WithOperation tags ctx with the name of the assistant operation issuing
// LLM calls, e.g. "diagram-generate". Clients include the tag in request
// logs so completions can be traced back to the operation that asked.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the operation tag, or "" when untagged.
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok {
		return op
	}
	return ""
}
