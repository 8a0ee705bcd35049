package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	joinCodeLength = 6
	// No 0/O or 1/I, so codes can be read aloud and typed without ambiguity
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// CodeGenerator produces a candidate join code
type CodeGenerator func() (string, error)

// NewCodeGenerator returns a generator that draws every position
// independently and uniformly from r. Pass nil for crypto/rand.
func NewCodeGenerator(r io.Reader) CodeGenerator {
	if r == nil {
		r = rand.Reader
	}
	return func() (string, error) {
		return generateJoinCode(r)
	}
}

func generateJoinCode(r io.Reader) (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	code := make([]byte, joinCodeLength)
	for i := range code {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
