package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns a stable hex digest used as a cache key for embedded
// text. Not for anything security-sensitive.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
