package service

import (
	"math"
	"math/rand"
)

// Alfabeto sin caracteres que se confunden (O/0, I/1, L, S/5)
const codeChars = "ABCDEFGHJKMNPQRTUVWXYZ12346789"

// generateCode genera el código corto legible del pedido.
func generateCode(num int) string {
	code := make([]byte, num)
	for i := range code {
		code[i] = codeChars[rand.Intn(len(codeChars))]
	}
	return string(code)
}

func roundDecimal(value float64) float64 {
	return math.Round((value+0.00001)*100) / 100
}
