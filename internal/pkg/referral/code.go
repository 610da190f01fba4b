package referral

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// codeAlphabet excludes characters that read ambiguously on paper (0/O,
// 1/I) so support staff can dictate codes over the phone.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	codePrefix = "DN-"
	codeLength = 4
)

// GenerateCode returns a fresh referral code of the DN-XXXX shape drawn
// from the restricted alphabet.
func GenerateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(codePrefix)
	for _, v := range b {
		sb.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return sb.String(), nil
}

// IsValidCode reports whether a candidate string has the referral code
// shape.
func IsValidCode(code string) bool {
	if len(code) != len(codePrefix)+codeLength || !strings.HasPrefix(code, codePrefix) {
		return false
	}
	for _, r := range code[len(codePrefix):] {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}
