package errors

import (
	stderrors "errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "STORY_MALFORMED", NewMalformedError("bad", nil).Code)
	assert.Equal(t, "NOT_FOUND", NewNotFoundError("missing", nil).Code)
	assert.Equal(t, "STORY_ALREADY_COMPLETE", NewAlreadyCompleteError(6).Code)
	assert.Equal(t, "CONTENT_UNAVAILABLE", NewDatasetGapError("gap").Code)
}

func TestTypeChecksFollowWrapping(t *testing.T) {
	base := NewNotFoundError("故事文件不存在", fs.ErrNotExist)
	wrapped := WrapError(base, "启动失败", ErrorTypeError)

	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsMalformedError(wrapped))
	assert.True(t, stderrors.Is(wrapped, fs.ErrNotExist))
	assert.Contains(t, wrapped.Error(), "启动失败")
}

func TestWrapPlainError(t *testing.T) {
	err := WrapError(stderrors.New("boom"), "解析失败", ErrorTypeMalformed)
	assert.True(t, IsMalformedError(err))
	assert.Nil(t, WrapError(nil, "x", ErrorTypeMalformed))
}
