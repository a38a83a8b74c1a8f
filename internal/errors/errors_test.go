package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnerCode(t *testing.T) {
	inner := ConfigInvalid("DATABASE_URL is required")
	outer := Wrap(inner, "failed to load database configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(outer))
	assert.Equal(t, "failed to load database configuration: DATABASE_URL is required", outer.Error())
	assert.True(t, stderrors.Is(outer, inner))
}

func TestWrapPlainError(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrapf(cause, "writing %s", "summary.txt")

	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWithCode(t *testing.T) {
	sentinel := stderrors.New("histogram shape mismatch")
	err := WithCode(CodeShapeMismatch, sentinel)

	assert.Equal(t, CodeShapeMismatch, GetCode(err))
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "UNKNOWN", GetCode(sentinel))
	assert.Equal(t, sentinel.Error(), err.Error())
	assert.Nil(t, WithCode(CodeNotFound, nil))
}

func TestWithCodeOverWrapReadsOnce(t *testing.T) {
	cause := stderrors.New("bins differ")
	wrapped := Wrapf(cause, "comparison %q failed", "bad")
	err := WithCode(CodeShapeMismatch, wrapped)

	assert.Equal(t, `comparison "bad" failed: bins differ`, err.Error())
	assert.Equal(t, CodeShapeMismatch, GetCode(err))
	assert.ErrorIs(t, err, cause)
}
