package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = stderrors.New("unknown column")

func TestWrap_KeepsCodeAndChain(t *testing.T) {
	base := WithCode(CodeConfigInvalid, errSentinel)
	wrapped := Wrap(base, "failed to plan housing_de")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, errSentinel))
	assert.Equal(t, "failed to plan housing_de: unknown column", wrapped.Error())
}

func TestWrap_PlainErrorIsInternal(t *testing.T) {
	wrapped := Wrapf(errSentinel, "job %d", 2)
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.True(t, IsAppError(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, "UNKNOWN", GetCode(errSentinel))
}

func TestSourceError(t *testing.T) {
	err := SourceError("immo_data.csv", errSentinel)
	assert.Equal(t, CodeSourceError, err.Code)
	assert.Contains(t, err.Error(), "immo_data.csv")
	assert.ErrorIs(t, err, errSentinel)
}

func TestWithCode_MessageIsCause(t *testing.T) {
	err := WithCode(CodeInvalidInput, errSentinel)
	assert.Equal(t, "unknown column", err.Error())
	assert.Nil(t, WithCode(CodeInvalidInput, nil))
}
