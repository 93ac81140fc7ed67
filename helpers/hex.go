package helpers

import (
	"encoding/hex"
	"strings"
)

var hexSpace = strings.NewReplacer(" ", "", "\n", "", "\t", "")

// MustHex is for test fixtures, whitespace separates groups: "1b1b1b1b 01010101".
func MustHex(s string) []byte {
	b, err := hex.DecodeString(hexSpace.Replace(s))
	if err != nil {
		panic(err)
	}
	return b
}
