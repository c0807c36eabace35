package otpcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	// Min and Max bound the generated codes, inclusive.
	Min = 1000
	Max = 9999
)

var span = big.NewInt(Max - Min + 1)

// Generate returns a 4-digit code drawn uniformly from [Min, Max] using crypto/rand.
func Generate() (string, error) {
	return generate(rand.Reader)
}

func generate(r io.Reader) (string, error) {
	n, err := rand.Int(r, span)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()+Min), nil
}
