package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouxError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	rouxErr := New(ErrCodeIOOther, "file not found: test.txt", originalErr)

	require.NotNil(t, rouxErr)
	assert.Equal(t, originalErr, errors.Unwrap(rouxErr))
	assert.True(t, errors.Is(rouxErr, originalErr))
}

func TestRouxError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "invalid params",
			code:     ErrCodeInvalidParams,
			message:  "tags must not be empty",
			expected: "[ERR_101_INVALID_PARAMS] tags must not be empty",
		},
		{
			name:     "io other",
			code:     ErrCodeIOOther,
			message:  "file.md not found",
			expected: "[ERR_202_IO_OTHER] file.md not found",
		},
		{
			name:     "path traversal",
			code:     ErrCodePathTraversal,
			message:  "path escapes source root",
			expected: "[ERR_304_PATH_TRAVERSAL] path escapes source root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestRouxError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeNotFound, "node A not found", nil)
	err2 := New(ErrCodeNotFound, "node B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestRouxError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeNotFound, "not found", nil)
	err2 := New(ErrCodeNodeExists, "already exists", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestRouxError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", nil)

	err = err.WithDetail("id", "abc123xyz789")
	err = err.WithDetail("path", "/vault/note.md")

	assert.Equal(t, "abc123xyz789", err.Details["id"])
	assert.Equal(t, "/vault/note.md", err.Details["path"])
}

func TestRouxError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeEmbedderUnavailable, "no embedder registered", nil)

	err = err.WithSuggestion("register an embedder before calling search")

	assert.Equal(t, "register an embedder before calling search", err.Suggestion)
}

func TestRouxError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeInvalidParams, CategoryProtocol},
		{ErrCodeNotFound, CategoryProtocol},
		{ErrCodeIOOther, CategoryIO},
		{ErrCodeIOMissing, CategoryIO},
		{ErrCodeDuplicateID, CategoryResolution},
		{ErrCodePathTraversal, CategoryResolution},
		{ErrCodeDimensionMismatch, CategoryValidation},
		{ErrCodeEmbedderUnavailable, CategoryProvider},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestRouxError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodePathTraversal, SeverityFatal},
		{ErrCodeDimensionMismatch, SeverityFatal},
		{ErrCodeGhostWrite, SeverityFatal},
		{ErrCodeNotFound, SeverityError},
		{ErrCodeVectorMultiModel, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestRouxError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeIOOther, true},
		{ErrCodeEmbedderUnavailable, true},
		{ErrCodeProviderError, true},
		{ErrCodeNotFound, false},
		{ErrCodePathTraversal, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesRouxErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	rouxErr := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, rouxErr)
	assert.Equal(t, ErrCodeInternal, rouxErr.Code)
	assert.Equal(t, "something went wrong", rouxErr.Message)
	assert.Equal(t, originalErr, rouxErr.Cause)
}

func TestInvalidParams_CreatesProtocolCategoryError(t *testing.T) {
	err := InvalidParams("limit must be >= 1")

	assert.Equal(t, CategoryProtocol, err.Category)
	assert.Equal(t, ErrCodeInvalidParams, err.Code)
}

func TestIOError_CreatesIOCategoryError(t *testing.T) {
	err := IOError("cannot read file", nil)

	assert.Equal(t, CategoryIO, err.Category)
}

func TestProviderError_CreatesRetryableError(t *testing.T) {
	err := ProviderError("embedder connection refused", nil)

	assert.Equal(t, CategoryProvider, err.Category)
	assert.True(t, err.Retryable)
}

func TestLinkIntegrity_CreatesProtocolCategoryError(t *testing.T) {
	err := LinkIntegrity("title change would orphan incoming links")

	assert.Equal(t, CategoryProtocol, err.Category)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable roux error",
			err:      New(ErrCodeProviderError, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable roux error",
			err:      New(ErrCodeNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeIOOther, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "fatal error",
			err:      New(ErrCodePathTraversal, "escapes root", nil),
			expected: true,
		},
		{
			name:     "dimension mismatch is fatal to the operation",
			err:      New(ErrCodeDimensionMismatch, "384 != 768", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
