package app

import (
	"crypto/rand"
	"math/big"
)

const (
	startKeyLength   = 8
	startKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// newStartKey returns a random deep-link key. It doubles as a capability token,
// so it is drawn from crypto/rand.
func newStartKey() (string, error) {
	max := big.NewInt(int64(len(startKeyAlphabet)))
	out := make([]byte, startKeyLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = startKeyAlphabet[n.Int64()]
	}
	return string(out), nil
}
