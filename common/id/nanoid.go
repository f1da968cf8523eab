package id

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	shortAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	shortLength   = 16
)

// Short returns a prefixed URL-safe random id, e.g. for request ids. Unlike
// New it needs no Init and is not time ordered.
func Short(prefix string) (string, error) {
	s, err := nanoid.Generate(shortAlphabet, shortLength)
	if err != nil {
		return "", fmt.Errorf("generating short id: %w", err)
	}
	return prefix + s, nil
}
