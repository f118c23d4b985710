package utils

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint keys a document for caching. The same text always yields the
// same key, and the key changes whenever the gazetteer version does.
func Fingerprint(text, gazetteerVersion string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0x1F})
	h.Write([]byte(gazetteerVersion))
	return fmt.Sprintf("sha256:%x", h.Sum(nil))
}
