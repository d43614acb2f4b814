package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCode(t *testing.T) {
	code := generateCode(8)
	assert.Len(t, code, 8)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(codeChars, c), "carácter fuera del alfabeto: %c", c)
	}
}

func TestRoundDecimal(t *testing.T) {
	assert.Equal(t, 8.25, roundDecimal(8.25))
	assert.Equal(t, 10.5, roundDecimal(3*3.5))
	assert.Equal(t, 0.3, roundDecimal(0.1+0.2))
}
