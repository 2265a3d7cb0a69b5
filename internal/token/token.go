// Package token produces and validates the short alphanumeric keys
// that identify stored URL mappings.
package token

import (
	"math/rand/v2"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

const (
	// Alphabet holds the 62 symbols a token may consist of.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLength is the length of randomly generated tokens.
	DefaultLength = 10

	// MaxCustomLength bounds user supplied tokens; it matches the width of the short_url column.
	MaxCustomLength = 10
)

var validate = validator.New()

// Generator creates random tokens of a fixed length. It is safe for concurrent use.
type Generator struct {
	length int
}

// NewGenerator returns a Generator producing tokens of the given length.
// Lengths outside 1..MaxCustomLength fall back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length <= 0 || length > MaxCustomLength {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Length reports the length of the produced tokens.
func (g *Generator) Length() int {
	return g.length
}

// Generate draws a token uniformly from the alphabet.
func (g *Generator) Generate() string {
	var result strings.Builder
	result.Grow(g.length)

	for i := 0; i < g.length; i++ {
		result.WriteByte(Alphabet[rand.IntN(len(Alphabet))])
	}

	return result.String()
}

// ValidateCustom reports whether a user supplied token is non-empty, at most
// MaxCustomLength long and made of ASCII letters and digits only.
func ValidateCustom(token string) bool {
	return validate.Var(token, "required,alphanum,max=10") == nil
}
