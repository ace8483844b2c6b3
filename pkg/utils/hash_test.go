package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashText(t *testing.T) {
	a := HashText("ada", "where is my order")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashText("ada", "  where is my order\n"))
	assert.NotEqual(t, a, HashText("ada", "where is my parcel"))
	assert.NotEqual(t, a, HashText("other-model", "where is my order"))
}
