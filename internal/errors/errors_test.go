package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeNetwork, cause, "getBalance failed", WithMetadata("endpoint", "http://a"))

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeNetwork, CodeOf(err))
	assert.Equal(t, "http://a", err.Metadata()["endpoint"])
	assert.Contains(t, err.Error(), "[NETWORK] getBalance failed: connection reset")
}

func TestCodeSurvivesFmtWrapping(t *testing.T) {
	inner := New(CodePermissionDenied, "")
	wrapped := fmt.Errorf("failed to build transaction: %w", inner)

	assert.True(t, HasCode(wrapped, CodePermissionDenied))
	assert.False(t, HasCode(wrapped, CodeLimitExceeded))
	assert.Equal(t, CategoryPolicy, CategoryOf(wrapped))
	assert.Equal(t, "permission denied", inner.Message())
}

func TestCategories(t *testing.T) {
	tests := []struct {
		code        Code
		category    Category
		recoverable bool
	}{
		{CodeKeyDerivation, CategoryFatal, false},
		{CodeAuthentication, CategoryFatal, false},
		{CodeUnsupportedVersion, CategoryFatal, false},
		{CodeStorage, CategoryFatal, false},
		{CodeNetwork, CategoryRetryable, true},
		{CodeTimeout, CategoryRetryable, true},
		{CodeRPC, CategoryRetryable, true},
		{CodeRateLimited, CategoryRetryable, true},
		{CodePermissionDenied, CategoryPolicy, false},
		{CodeLimitExceeded, CategoryPolicy, false},
		{CodeInsufficientFunds, CategoryPolicy, false},
		{CodeValidation, CategoryValidation, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "")
			assert.Equal(t, tt.category, CategoryOf(err))
			assert.Equal(t, tt.recoverable, Recoverable(err))
		})
	}
}

func TestRetryableOverride(t *testing.T) {
	err := New(CodeRPC, "invalid params", WithRetryable(false))
	assert.False(t, RetryableError(err))
	assert.True(t, RetryableError(New(CodeRPC, "")))
	assert.False(t, RetryableError(stdErrors.New("plain")))
}

func TestUnknownCodeFallsBack(t *testing.T) {
	err := New(Code("SOMETHING_NEW"), "")
	assert.Equal(t, "unknown error", err.Message())
	assert.Equal(t, SeverityCritical, SeverityOf(err))
	assert.Equal(t, CodeUnknown, CodeOf(stdErrors.New("plain")))
}
