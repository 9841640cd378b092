package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docvec/core"
)

const (
	// DefaultSplitLength is the passage length, in characters, that triggers a new passage.
	DefaultSplitLength = 2000

	// DefaultOverlapWords is the number of words carried across passage boundaries.
	DefaultOverlapWords = 100

	partSeparator = "\n\n"
)

var (
	blankLinesPattern = regexp.MustCompile(`(?m)^(?:[\t ]*(?:\r?\n|\r))+`)
	whitespacePattern = regexp.MustCompile(`\s\s*`)
)

// Options controls how segments are grouped into passages.
type Options struct {
	// SplitLength is the character count a passage must exceed before the
	// next segment starts a new one. Default: 2000
	SplitLength int

	// OverlapWords is the number of words copied from neighbouring passages
	// when a passage is closed. Default: 100
	OverlapWords int

	// PlainText disables the whitespace heuristic that drops segments
	// without internal spaces (base64 blobs, binary residue).
	PlainText bool
}

// DefaultOptions returns Options with the default split length and overlap.
func DefaultOptions() Options {
	return Options{
		SplitLength:  DefaultSplitLength,
		OverlapWords: DefaultOverlapWords,
	}
}

func (o Options) withDefaults() Options {
	if o.SplitLength <= 0 {
		o.SplitLength = DefaultSplitLength
	}
	if o.OverlapWords <= 0 {
		o.OverlapWords = DefaultOverlapWords
	}
	return o
}

// draft is a passage under construction. head and tail hold overlap text
// borrowed from the neighbouring passages and are only set once the draft
// is closed.
type draft struct {
	head string
	body string
	tail string
	page int
}

func (d *draft) text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.head, d.body, d.tail} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, partSeparator)
}

// Normalize collapses whitespace in parsed text: tabs become spaces, runs of
// blank lines and all other whitespace runs collapse to single spaces.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\t", " ")
	text = blankLinesPattern.ReplaceAllString(text, "\n")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Chunk groups parsed segments into overlap-aware passages in document order.
func Chunk(segments []core.RawSegment, opts Options) []core.Passage {
	opts = opts.withDefaults()

	var drafts []*draft
	for _, seg := range segments {
		text := Normalize(seg.Text)
		if text == "" {
			continue
		}
		if !opts.PlainText && !strings.Contains(text, " ") {
			continue
		}

		if len(drafts) == 0 {
			drafts = append(drafts, &draft{body: text, page: seg.PageNumber()})
			continue
		}

		last := drafts[len(drafts)-1]
		if utf8.RuneCountInString(last.body) > opts.SplitLength {
			if len(drafts) >= 2 {
				last.head = lastWords(drafts[len(drafts)-2].body, opts.OverlapWords)
			}
			last.tail = firstWords(text, opts.OverlapWords)
			drafts = append(drafts, &draft{body: text, page: seg.PageNumber()})
			continue
		}

		last.body = last.body + partSeparator + text
	}

	// A short trailing passage is folded into its predecessor. The tail the
	// predecessor borrowed from it would then be duplicated, so it goes.
	if n := len(drafts); n >= 3 && utf8.RuneCountInString(drafts[n-1].body) < opts.SplitLength/2 {
		prev := drafts[n-2]
		prev.body = prev.body + partSeparator + drafts[n-1].body
		prev.tail = ""
		drafts = drafts[:n-1]
	}

	passages := make([]core.Passage, len(drafts))
	for i, d := range drafts {
		passages[i] = core.Passage{Text: d.text(), PageNumber: d.page}
	}
	return passages
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func lastWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
