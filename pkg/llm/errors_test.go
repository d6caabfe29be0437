package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestError_Error_WithStatusCode tests Error.Error() includes status code
func TestError_Error_WithStatusCode(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
	}

	result := err.Error()
	if !strings.Contains(result, "HTTP 503") {
		t.Errorf("expected error message to contain 'HTTP 503', got: %s", result)
	}
	if !strings.Contains(result, "server error") {
		t.Errorf("expected error message to contain 'server error', got: %s", result)
	}
}

// TestError_Error_WithModel tests Error.Error() includes model name
func TestError_Error_WithModel(t *testing.T) {
	err := &Error{
		Type:    ErrorTypeEndpoint,
		Message: "rate limited",
		Model:   "gpt-4o",
	}

	result := err.Error()
	if !strings.Contains(result, "model=gpt-4o") {
		t.Errorf("expected error message to contain 'model=gpt-4o', got: %s", result)
	}
}

// TestError_Error_WithEndpoint tests Error.Error() redacts the endpoint to host
func TestError_Error_WithEndpoint(t *testing.T) {
	err := &Error{
		Type:     ErrorTypeEndpoint,
		Message:  "connection failed",
		Endpoint: "https://api.openai.com/v1",
	}

	result := err.Error()
	if !strings.Contains(result, "endpoint=api.openai.com") {
		t.Errorf("expected error message to contain 'endpoint=api.openai.com', got: %s", result)
	}
	if strings.Contains(result, "/v1") {
		t.Errorf("endpoint should be redacted to host only, but got full URL: %s", result)
	}
}

// TestError_Error_WithFullContext tests Error.Error() with all fields set
func TestError_Error_WithFullContext(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Model:      "gpt-4o",
		Endpoint:   "https://api.openai.com/v1",
		Cause:      errors.New("underlying network issue"),
	}

	result := err.Error()
	for _, want := range []string{"HTTP 503", "model=gpt-4o", "endpoint=api.openai.com", "server error", "underlying network issue"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected error message to contain %q, got: %s", want, result)
		}
	}
}

// TestError_Error_MinimalContext tests Error.Error() without optional fields
func TestError_Error_MinimalContext(t *testing.T) {
	err := &Error{
		Type:    ErrorTypeAuth,
		Message: "authentication failed",
	}

	result := err.Error()
	expected := "auth authentication failed"
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

// TestError_Unwrap tests that Unwrap returns the underlying cause
func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &Error{
		Type:    ErrorTypeEndpoint,
		Message: "server error",
		Cause:   cause,
	}

	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the underlying cause")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to see through to the cause")
	}
}

// TestError_IsRetryable tests the IsRetryable method
func TestError_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		retryable bool
	}{
		{"retryable error", true},
		{"non-retryable error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{
				Type:      ErrorTypeEndpoint,
				Message:   "test error",
				Retryable: tt.retryable,
			}

			if err.IsRetryable() != tt.retryable {
				t.Errorf("expected IsRetryable() to return %v", tt.retryable)
			}
		})
	}
}

// TestClassifyError_ExtractsStatusCode tests ClassifyError extracts status codes
func TestClassifyError_ExtractsStatusCode(t *testing.T) {
	tests := []struct {
		name               string
		inputError         error
		expectedStatusCode int
		expectedType       ErrorType
	}{
		{
			name:               "503 service unavailable",
			inputError:         errors.New("HTTP 503 Service Unavailable"),
			expectedStatusCode: 503,
			expectedType:       ErrorTypeEndpoint,
		},
		{
			name:               "429 rate limit",
			inputError:         errors.New("HTTP 429 Too Many Requests"),
			expectedStatusCode: 429,
			expectedType:       ErrorTypeRateLimited,
		},
		{
			name:               "500 internal server error",
			inputError:         errors.New("HTTP 500 Internal Server Error"),
			expectedStatusCode: 500,
			expectedType:       ErrorTypeEndpoint,
		},
		{
			name:               "401 unauthorized",
			inputError:         errors.New("HTTP 401 Unauthorized"),
			expectedStatusCode: 401,
			expectedType:       ErrorTypeAuth,
		},
		{
			name:               "404 not found",
			inputError:         errors.New("HTTP 404 Not Found"),
			expectedStatusCode: 404,
			expectedType:       ErrorTypeEndpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(tt.inputError)
			if result.StatusCode != tt.expectedStatusCode {
				t.Errorf("expected status code %d, got %d", tt.expectedStatusCode, result.StatusCode)
			}
			if result.Type != tt.expectedType {
				t.Errorf("expected type %s, got %s", tt.expectedType, result.Type)
			}
		})
	}
}

// TestClassifyError_NoStatusCode tests ClassifyError with errors that carry no status code
func TestClassifyError_NoStatusCode(t *testing.T) {
	err := errors.New("connection refused")
	result := ClassifyError(err)

	if result.StatusCode != 0 {
		t.Errorf("expected status code 0, got %d", result.StatusCode)
	}
	if result.Type != ErrorTypeEndpoint {
		t.Errorf("expected type %s, got %s", ErrorTypeEndpoint, result.Type)
	}
	if !result.Retryable {
		t.Error("connection refused should be retryable")
	}
}

// TestClassifyError_Retryability tests which classifications allow retry
func TestClassifyError_Retryability(t *testing.T) {
	tests := []struct {
		name      string
		errStr    string
		retryable bool
	}{
		{"auth failure", "invalid api key provided", false},
		{"model missing", "model llama3 not found", false},
		{"endpoint 404", "HTTP 404 Not Found", false},
		{"connection refused", "dial tcp: connection refused", true},
		{"no such host", "dial tcp: lookup llm.local: no such host", true},
		{"timeout", "request timeout exceeded", true},
		{"deadline", "context deadline exceeded", true},
		{"rate limit", "rate limit exceeded, retry later", true},
		{"server error", "HTTP 502 Bad Gateway", true},
		{"gpu failure", "CUDA error: out of memory", true},
		{"unknown", "something odd happened", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(errors.New(tt.errStr))
			if result.Retryable != tt.retryable {
				t.Errorf("ClassifyError(%q).Retryable = %v, expected %v", tt.errStr, result.Retryable, tt.retryable)
			}
		})
	}
}

// TestClassifyError_ContextCanceledNotRetryable tests that cancellation is not retryable
func TestClassifyError_ContextCanceledNotRetryable(t *testing.T) {
	for _, err := range []error{
		context.Canceled,
		fmt.Errorf("request aborted: %w", context.Canceled),
		errors.New("context canceled"),
	} {
		result := ClassifyError(err)
		if result.Retryable {
			t.Errorf("ClassifyError(%v) should NOT be retryable", err)
		}
		if result.Message != "request cancelled" {
			t.Errorf("expected message 'request cancelled', got %s", result.Message)
		}
	}
}

// TestClassifyError_PreservesExistingError tests that ClassifyError returns an existing *Error unchanged
func TestClassifyError_PreservesExistingError(t *testing.T) {
	original := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		Retryable:  true,
		StatusCode: 503,
		Model:      "gpt-4o",
	}

	result := ClassifyError(original)
	if result != original {
		t.Error("expected ClassifyError to return the same *Error instance")
	}
}

// TestExtractStatusCode_Precision tests that status code extraction avoids false positives
func TestExtractStatusCode_Precision(t *testing.T) {
	tests := []struct {
		name         string
		errStr       string
		expectedCode int
	}{
		{"HTTP prefix", "HTTP 503 Service Unavailable", 503},
		{"status prefix", "status 429 rate limited", 429},
		{"status colon", "status: 500", 500},
		{"code prefix", "code 502 bad gateway", 502},
		{"code colon", "code: 504 timeout", 504},
		{"no false positive - processed records", "processed 503 records", 0},
		{"no false positive - port number", "port 5432 connection failed", 0},
		{"no false positive - random number", "error after 429 seconds", 0},
		{"mixed case HTTP", "http 503 error", 503},
		{"case insensitive status", "Status: 404 Not Found", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractStatusCode(tt.errStr)
			if result != tt.expectedCode {
				t.Errorf("extractStatusCode(%q) = %d, expected %d", tt.errStr, result, tt.expectedCode)
			}
		})
	}
}

// TestClassifyError_RateLimitedType tests that rate limit errors get proper type
func TestClassifyError_RateLimitedType(t *testing.T) {
	tests := []struct {
		name     string
		errStr   string
		expected ErrorType
	}{
		{"HTTP 429", "HTTP 429 Too Many Requests", ErrorTypeRateLimited},
		{"rate limit text", "rate limit exceeded", ErrorTypeRateLimited},
		{"too many requests", "too many requests", ErrorTypeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(errors.New(tt.errStr))
			if result.Type != tt.expected {
				t.Errorf("expected type %s, got %s", tt.expected, result.Type)
			}
		})
	}
}

// TestIsRetryable tests the package-level retryability check
func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewError(ErrorTypeEndpoint, "server error", true, nil)) {
		t.Error("expected retryable *Error to report retryable")
	}
	if IsRetryable(NewError(ErrorTypeAuth, "authentication failed", false, nil)) {
		t.Error("expected non-retryable *Error to report non-retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("expected plain error to report non-retryable")
	}
}

// TestGetErrorType tests ErrorType extraction from wrapped errors
func TestGetErrorType(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", NewError(ErrorTypeModel, "model not found", false, nil))
	if got := GetErrorType(wrapped); got != ErrorTypeModel {
		t.Errorf("expected type %s, got %s", ErrorTypeModel, got)
	}
	if got := GetErrorType(errors.New("plain error")); got != ErrorTypeUnknown {
		t.Errorf("expected type %s for plain error, got %s", ErrorTypeUnknown, got)
	}
}
