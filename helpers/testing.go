package helpers

import (
	"math/rand"
	"time"
)

// RandUnix is for shuffling test cases, not for anything secret.
func RandUnix() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
