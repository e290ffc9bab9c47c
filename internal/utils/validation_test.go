package utils_test

import (
	"strings"
	"testing"

	"github.com/mautops/review-gin/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	assert.NoError(t, utils.ValidateID("sub-01_A"))
	assert.ErrorIs(t, utils.ValidateID(""), utils.ErrEmptyID)
	assert.ErrorIs(t, utils.ValidateID(strings.Repeat("a", 65)), utils.ErrIDTooLong)
	for _, id := range []string{"a b", "../x", "a/b", "名字"} {
		assert.ErrorIs(t, utils.ValidateID(id), utils.ErrInvalidIDFormat, id)
	}
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, utils.ValidateText("第一行\n第二行\tend", 20))
	assert.NoError(t, utils.ValidateText(strings.Repeat("写", 10), 10))
	assert.ErrorIs(t, utils.ValidateText(strings.Repeat("写", 11), 10), utils.ErrStringTooLong)
	assert.ErrorIs(t, utils.ValidateText("bell\a", 0), utils.ErrControlChars)
	assert.NoError(t, utils.ValidateText(strings.Repeat("x", 1000), 0))
}
