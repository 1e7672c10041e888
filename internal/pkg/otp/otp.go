// Package otp generates the numeric one-time passcodes mailed to users.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Codes are always 6 digits: the range is [Min, Max].
const (
	Min    = 100000
	Max    = 999999
	Digits = 6
)

var span = big.NewInt(Max - Min + 1)

// Generator draws codes from a cryptographically strong source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// Generate returns a fresh code. A failing randomness source is returned as
// an error; callers must abort the request.
func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(g.rand, span)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+Min), nil
}
