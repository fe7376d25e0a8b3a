package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomInt returns a uniformly distributed integer in [min, max].
func RandomInt(min, max int64) (int64, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}
