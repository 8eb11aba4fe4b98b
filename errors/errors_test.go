package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op only",
			err:  NewError("list", ErrIO),
			want: "list: i/o failure",
		},
		{
			name: "op and key",
			err:  NewObjectError("rename", "docs/a.txt", ErrNotFound),
			want: "rename docs/a.txt: not found",
		},
		{
			name: "with message",
			err:  NewError("upload", ErrInvalidInput).WithKey("x").WithMessage("destination is required"),
			want: "upload x: destination is required: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("rename", "docs/b.txt")

	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "an object with the same name already exists: docs/b.txt")
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{name: "nil", err: nil, code: ""},
		{name: "not found", err: NewObjectError("stat", "a", ErrNotFound), code: CodeNotFound},
		{name: "conflict", err: NewConflictError("upload", "a"), code: CodeConflict},
		{name: "invalid", err: fmt.Errorf("wrap: %w", ErrInvalidInput), code: CodeInvalidInput},
		{name: "canceled sentinel", err: ErrCanceled, code: CodeCanceled},
		{name: "context canceled", err: fmt.Errorf("read: %w", context.Canceled), code: CodeCanceled},
		{name: "io", err: NewError("download", ErrIO), code: CodeIO},
		{name: "unknown", err: errors.New("boom"), code: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestIgnore(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, Ignore(slog.New(slog.DiscardHandler), "cleanup", "p/", nil))
	})

	t.Run("logs and classifies", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		cause := errors.New("delete failed")

		ig := Ignore(logger, "cleanup", "old/", cause)
		require.NotNil(t, ig)

		assert.ErrorIs(t, ig, cause)
		assert.True(t, IsIgnorable(fmt.Errorf("outer: %w", ig)))
		assert.Contains(t, buf.String(), "ignoring error")
		assert.Contains(t, buf.String(), "op=cleanup")
		assert.Contains(t, buf.String(), "key=old/")
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			Ignore(nil, "cancel", "", errors.New("x"))
		})
	})
}
