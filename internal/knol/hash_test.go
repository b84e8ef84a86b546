package knol

import (
	"testing"

	"github.com/conorfennell/spacedrep/internal/domain"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		card     domain.Card
		expected string
	}{
		{
			name: "trims and lower-cases every part",
			card: domain.Card{
				Front:   "  What is HTMX? \r\n",
				Back:    "A library for AJAX.",
				Context: "Web Development",
			},
			expected: "what is htmx?\na library for ajax.\nweb development",
		},
		{
			name: "keeps inner lines of a multiline back",
			card: domain.Card{
				Front: "Primary colours",
				Back:  "Red  \r\nBlue\t\r\nYellow",
			},
			expected: "primary colours\nred\nblue\nyellow\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.card); got != tc.expected {
				t.Errorf("Expected normalized string to be %q, but got %q", tc.expected, got)
			}
		})
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		testCases := []struct {
			card     domain.Card
			expected string
		}{
			{
				// sha256("q\na\nc")
				card:     domain.Card{Front: "Q", Back: "A", Context: "C"},
				expected: "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2",
			},
			{
				// sha256("what is go?\na language.\nline two\n")
				card:     domain.Card{Front: "What is Go?", Back: "A language.   \r\nLine two"},
				expected: "656a68bf9ae1bd795e9a80a7f5c394aee8dc0edb0f46a083fef5f4398377e4c6",
			},
		}
		for _, tc := range testCases {
			if got := Hash(tc.card); got != tc.expected {
				t.Errorf("Expected hash '%s', but got '%s'", tc.expected, got)
			}
		}
	})

	t.Run("ignores scheduling state and ownership", func(t *testing.T) {
		a := domain.Card{Front: "Test", UserID: "u1", CardState: domain.CardState{EaseFactor: 2.5}}
		b := domain.Card{Front: "Test", UserID: "u2", CardState: domain.CardState{EaseFactor: 1.3, Interval: 40}}
		if Hash(a) != Hash(b) {
			t.Error("Expected hashes for identical content to be the same")
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		a := domain.Card{Front: "  what is go? ", Back: "A programming language."}
		b := domain.Card{Front: "What Is Go?", Back: "A programming language.\r\n"}
		if Hash(a) != Hash(b) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("field boundaries matter", func(t *testing.T) {
		a := domain.Card{Front: "ab", Back: "c"}
		b := domain.Card{Front: "a", Back: "bc"}
		if Hash(a) == Hash(b) {
			t.Error("Expected hashes for different splits to be different")
		}
	})
}
