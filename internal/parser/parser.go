package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/spacedrep/internal/domain"
)

const (
	frontPrefix   = "Q:"
	backPrefix    = "A:"
	contextPrefix = "C:"
	separator     = "---"
)

// ErrIncompleteCard is reported for a question that has no answer.
var ErrIncompleteCard = errors.New("card has no answer")

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingContext
)

// ParseFile reads a markdown file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads Q:/A:/C: blocks from r. A card ends at a "---" line, at the
// next Q: line or at the end of input. Lines without a prefix continue the
// current block.
//
// Complete cards are always returned. Questions without an answer are
// skipped and reported as ErrIncompleteCard, joined into the returned error.
func Parse(r io.Reader) ([]domain.Card, error) {
	p := &cardParser{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		p.line(scanner.Text(), lineNo)
	}
	p.finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.cards, errors.Join(p.errs...)
}

type cardParser struct {
	cards []domain.Card
	errs  []error

	current   domain.Card
	startLine int
	state     state
	block     []string
}

func (p *cardParser) line(line string, lineNo int) {
	if line == separator {
		p.finishCard()
		return
	}

	next, content, ok := prefixed(line)
	if !ok {
		if p.state != seeking {
			p.block = append(p.block, line)
		}
		return
	}

	p.flushBlock()
	if next == readingFront {
		// A new question always starts a new card.
		if p.state != seeking {
			p.finishCard()
		}
		p.startLine = lineNo
	}
	p.state = next
	p.block = append(p.block, content)
}

func prefixed(line string) (state, string, bool) {
	for _, c := range []struct {
		prefix string
		state  state
	}{
		{frontPrefix, readingFront},
		{backPrefix, readingBack},
		{contextPrefix, readingContext},
	} {
		if rest, ok := strings.CutPrefix(line, c.prefix); ok {
			return c.state, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}

func (p *cardParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(p.block, "\n"), "\n")
	switch p.state {
	case readingFront:
		p.current.Front = content
	case readingBack:
		p.current.Back = content
	case readingContext:
		p.current.Context = content
	}
	p.block = nil
}

func (p *cardParser) finishCard() {
	p.flushBlock()
	switch {
	case p.current.Front == "":
	case strings.TrimSpace(p.current.Back) == "":
		p.errs = append(p.errs, fmt.Errorf("line %d: %q: %w", p.startLine, p.current.Front, ErrIncompleteCard))
	default:
		p.cards = append(p.cards, p.current)
	}
	p.current = domain.Card{}
	p.state = seeking
}
