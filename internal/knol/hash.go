package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/spacedrep/internal/domain"
)

// Normalize joins the card's front, back and context after cleaning each
// part: lower-cased, CRLF converted to LF, trailing spaces stripped from
// every line and the whole part trimmed.
func Normalize(card domain.Card) string {
	parts := []string{card.Front, card.Back, card.Context}
	for i, p := range parts {
		parts[i] = normalizePart(p)
	}
	// Newline-joined so "ab"+"c" and "a"+"bc" differ.
	return strings.Join(parts, "\n")
}

func normalizePart(part string) string {
	p := strings.ToLower(part)
	p = strings.ReplaceAll(p, "\r\n", "\n")
	lines := strings.Split(p, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Hash returns the hex SHA-256 of the normalized card. Two cards with the
// same hash are the same piece of content.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
