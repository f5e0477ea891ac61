package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(SetLanguage("en-US"))
	assert.Equal("symbol loop is not defined", From("symbol %v is not defined", "loop"))
	assert.Equal("0x1f", From("%#x", 31))

	assert.Error(SetLanguage("not a language tag!"))
}
