package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{name: "invalid identifier", err: NewError(KindInvalidIdentifier, "", "", nil), want: http.StatusBadRequest},
		{name: "content not found", err: NewError(KindContentNotFound, "", "", nil), want: http.StatusNotFound},
		{name: "no valid image", err: NewError(KindNoValidImage, "", RoleBase, nil), want: http.StatusNotFound},
		{name: "missing base file", err: NewError(KindMissingFile, "", RoleBase, nil), want: http.StatusNotFound},
		{name: "base signature", err: NewError(KindSignatureMismatch, "", RoleBase, nil), want: http.StatusNotFound},
		{name: "missing overlay file", err: NewError(KindMissingFile, "", RoleOverlay, nil), want: http.StatusInternalServerError},
		{name: "missing overlay", err: NewError(KindMissingOverlay, "", RoleOverlay, nil), want: http.StatusInternalServerError},
		{name: "out of bounds", err: NewError(KindOverlayOutOfBounds, "", RoleOverlay, nil), want: http.StatusInternalServerError},
		{name: "memory", err: NewError(KindInsufficientMemory, "", "", nil), want: http.StatusInternalServerError},
		{name: "encode", err: NewError(KindEncodeFailed, "", "", nil), want: http.StatusInternalServerError},
		{name: "unknown kind", err: NewError(Kind(99), "", "", nil), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestKind_Category(t *testing.T) {
	tests := []struct {
		kind Kind
		want Category
	}{
		{kind: KindInvalidIdentifier, want: CategoryRequest},
		{kind: KindNoValidImage, want: CategoryRequest},
		{kind: KindMissingOverlay, want: CategoryConfig},
		{kind: KindPathEscape, want: CategoryValidation},
		{kind: KindDimensionsOutOfRange, want: CategoryValidation},
		{kind: KindProcessingTimeout, want: CategoryResource},
		{kind: KindOverlayOutOfBounds, want: CategoryComposition},
		{kind: KindProcessingException, want: CategoryComposition},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Category())
		})
	}
}

func TestKind_StringIsExhaustive(t *testing.T) {
	for k := KindInvalidIdentifier; k <= KindProcessingException; k++ {
		assert.NotContains(t, k.String(), "kind(", "kind %d has no name", int(k))
	}
	assert.Equal(t, "kind(0)", Kind(0).String())
}

func TestError_Error(t *testing.T) {
	err := NewError(KindMissingFile, "validate", RoleBase, errors.New("no such file"))
	assert.Equal(t, "validate: missing_file (base): no such file", err.Error())

	err.RecoveryAttempted = true
	assert.Equal(t, "validate: missing_file (base): no such file [recovery attempted: true]", err.Error())
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	inner := NewError(KindDecodeFailed, "decode_base", RoleBase, nil)
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.Same(t, inner, AsError(wrapped))

	plain := errors.New("boom")
	got := AsError(plain)
	require.NotNil(t, got)
	assert.Equal(t, KindProcessingException, got.Kind)
	assert.ErrorIs(t, got, plain)
}
