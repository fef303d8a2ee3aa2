package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var ErrEmptySet = errors.New("cannot pick from an empty set")

// Picker chooses an index in [0, n).
type Picker interface {
	Pick(n int) (int, error)
}

// CryptoPicker draws uniformly using crypto/rand.
type CryptoPicker struct{}

func NewCryptoPicker() CryptoPicker {
	return CryptoPicker{}
}

func (CryptoPicker) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptySet
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random index: %w", err)
	}
	return int(v.Int64()), nil
}

// PickerFunc adapts a plain function, mostly for deterministic tests.
type PickerFunc func(n int) (int, error)

func (f PickerFunc) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, ErrEmptySet
	}
	return f(n)
}

// First always returns index 0.
var First = PickerFunc(func(int) (int, error) { return 0, nil })
