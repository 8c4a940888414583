package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.NotNil(printer)
	assert.Equal("line 3 label invalid", From("line %d %v", 3, "label invalid"))
	assert.Equal("cpu halted", From("cpu halted"))
}
