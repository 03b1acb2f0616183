// Package idgenerator produces the short random codes used both as short URL keys
// and as user identifiers.
package idgenerator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

const (
	// Alphabet holds the symbols a code is drawn from: lowercase latin letters and digits.
	Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// CodeLength is the number of symbols in every generated code.
	CodeLength = 6

	// TriesToGenerateUniqueCode bounds GenerateUnique.
	TriesToGenerateUniqueCode = 10
)

// ErrIdentifierSpaceExhausted is returned by GenerateUnique when every attempt hit a taken code.
var ErrIdentifierSpaceExhausted = errors.New("the number of attempts to generate a unique identifier has been exceeded")

// Generator draws codes from an entropy source.
type Generator struct {
	entropy io.Reader
}

// New returns a Generator backed by crypto/rand.
func New() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewWithEntropy returns a Generator reading randomness from the given source.
func NewWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate returns CodeLength symbols, each chosen independently and uniformly from Alphabet.
func (g *Generator) Generate() (string, error) {
	upperBound := big.NewInt(int64(len(Alphabet)))
	result := make([]byte, CodeLength)

	for i := range result {
		randomIndex, err := rand.Int(g.entropy, upperBound)
		if err != nil {
			return "", fmt.Errorf("in internal/idgenerator/idgenerator.go/Generate(): error while `rand.Int()` calling: %w", err)
		}
		result[i] = Alphabet[randomIndex.Int64()]
	}

	return string(result), nil
}

// GenerateUnique keeps generating codes until taken reports false for one of them.
// taken is called with the caller's store lock held, so it must not block.
func (g *Generator) GenerateUnique(taken func(code string) bool) (string, error) {
	for i := 0; i < TriesToGenerateUniqueCode; i++ {
		code, err := g.Generate()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
		logger.Log.Debugln("generated identifier is already taken, retrying", "code", code, "attempt", i+1)
	}

	return "", ErrIdentifierSpaceExhausted
}
