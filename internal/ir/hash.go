package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DomainModule is the domain prefix of module fingerprints. The version
// suffix allows the text format to change without colliding with old
// fingerprints.
const DomainModule = "fnjit/module/v" + IRVersion

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalText returns the printed module in canonical form: NFC
// normalized, LF line endings, no trailing whitespace on any line.
func CanonicalText(m *Module) string {
	text := norm.NFC.String(Print(m))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// Fingerprint computes a content-addressed identity for a module. Two
// modules with the same canonical text have the same fingerprint.
func Fingerprint(m *Module) string {
	return hashWithDomain(DomainModule, []byte(CanonicalText(m)))
}
