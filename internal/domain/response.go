package domain

import (
	"encoding"
	"fmt"
	"strings"
)

// Response is the coarse, user-facing outcome of a review.
type Response int

const (
	Forgot Response = iota + 1
	Hard
	Good
	Easy
)

var (
	responseNames = [...]string{Forgot: "forgot", Hard: "hard", Good: "good", Easy: "easy"}

	_ fmt.Stringer             = Response(0)
	_ encoding.TextMarshaler   = Response(0)
	_ encoding.TextUnmarshaler = (*Response)(nil)
)

// IsValid reports whether r is one of the four defined responses.
func (r Response) IsValid() bool {
	return r >= Forgot && r <= Easy
}

func (r Response) String() string {
	if r.IsValid() {
		return responseNames[r]
	}
	return fmt.Sprintf("Response(%d)", int(r))
}

// ParseResponse converts a response tag such as "good" into a Response.
// Matching is case-insensitive. Unknown tags are an error, never a default.
func ParseResponse(s string) (Response, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for r := Forgot; r <= Easy; r++ {
		if responseNames[r] == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown response %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Response) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: response %d", ErrInvalidInput, int(r))
	}
	return []byte(responseNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Response) UnmarshalText(text []byte) error {
	v, err := ParseResponse(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
