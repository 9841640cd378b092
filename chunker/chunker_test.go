package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longText builds space separated words with the given prefix until the
// text is longer than minLen characters.
func longText(prefix string, minLen int) string {
	var b strings.Builder
	for i := 0; b.Len() <= minLen; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s%d", prefix, i)
	}
	return b.String()
}

func segment(text string, page int) core.RawSegment {
	return core.RawSegment{Text: text, Metadata: map[string]any{"page_number": page}}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tabs", "a\t\tb", "a b"},
		{"blank lines", "first\n\n\n   \nsecond", "first second"},
		{"crlf", "one\r\n\r\ntwo", "one two"},
		{"leading and trailing", "  \n padded \t ", "padded"},
		{"already clean", "nothing to do", "nothing to do"},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, Chunk(nil, DefaultOptions()))
	assert.Empty(t, Chunk([]core.RawSegment{}, DefaultOptions()))
}

func TestChunk_SingleShortSegment(t *testing.T) {
	passages := Chunk([]core.RawSegment{segment("hello small world", 3)}, DefaultOptions())
	require.Len(t, passages, 1)
	assert.Equal(t, "hello small world", passages[0].Text)
	assert.Equal(t, 3, passages[0].PageNumber)
}

func TestChunk_AppendsUntilSplitLength(t *testing.T) {
	passages := Chunk([]core.RawSegment{
		segment("first part here", 1),
		segment("second part here", 1),
		segment("third part here", 2),
	}, DefaultOptions())

	require.Len(t, passages, 1)
	assert.Equal(t, "first part here\n\nsecond part here\n\nthird part here", passages[0].Text)
	assert.Equal(t, 1, passages[0].PageNumber)
}

func TestChunk_SplitTrigger(t *testing.T) {
	// 200 ten-character units plus one character: exactly 2001 characters.
	first := strings.Repeat("abcdefghi ", 201)[:2001]
	require.Equal(t, 2001, utf8.RuneCountInString(first))
	second := "the second segment starts here"

	passages := Chunk([]core.RawSegment{segment(first, 1), segment(second, 2)}, DefaultOptions())

	require.Len(t, passages, 2)
	assert.True(t, strings.HasPrefix(passages[0].Text, first))
	assert.True(t, strings.HasSuffix(passages[0].Text, "\n\n"+second), "closed passage should end with the next segment's leading words")
	assert.Equal(t, 1, passages[0].PageNumber)
	assert.Equal(t, second, passages[1].Text)
	assert.Equal(t, 2, passages[1].PageNumber)
}

func TestChunk_ExactlySplitLengthDoesNotSplit(t *testing.T) {
	first := strings.Repeat("abcdefghi ", 201)[:2000]
	first = strings.TrimSpace(first[:1999]) + "x"
	require.Equal(t, 2000, utf8.RuneCountInString(first))

	passages := Chunk([]core.RawSegment{segment(first, 1), segment("tail words", 1)}, DefaultOptions())
	require.Len(t, passages, 1)
	assert.Equal(t, first+"\n\ntail words", passages[0].Text)
}

func TestChunk_OverlapWords(t *testing.T) {
	seg0 := longText("a", 2000)
	seg1 := longText("b", 2000)
	seg2 := longText("c", 2000)

	passages := Chunk([]core.RawSegment{segment(seg0, 1), segment(seg1, 2), segment(seg2, 3)}, DefaultOptions())
	require.Len(t, passages, 3)

	// The middle passage borrows the last 100 words of the first and the
	// first 100 words of the third.
	parts := strings.Split(passages[1].Text, "\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, lastWords(seg0, 100), parts[0])
	assert.Equal(t, seg1, parts[1])
	assert.Equal(t, firstWords(seg2, 100), parts[2])
	assert.Len(t, strings.Fields(parts[0]), 100)
	assert.Len(t, strings.Fields(parts[2]), 100)

	// The first passage has no predecessor to borrow from.
	first := strings.Split(passages[0].Text, "\n\n")
	require.Len(t, first, 2)
	assert.Equal(t, seg0, first[0])

	// The final passage is never closed, so it carries no overlap.
	assert.Equal(t, seg2, passages[2].Text)
	assert.Equal(t, []int{1, 2, 3}, []int{passages[0].PageNumber, passages[1].PageNumber, passages[2].PageNumber})
}

func TestChunk_MergesShortTrailingPassage(t *testing.T) {
	seg0 := longText("a", 2000)
	seg1 := longText("b", 2000)
	seg2 := longText("c", 2000)
	short := "a short closing remark"

	passages := Chunk([]core.RawSegment{
		segment(seg0, 1), segment(seg1, 2), segment(seg2, 3), segment(short, 4),
	}, DefaultOptions())

	require.Len(t, passages, 3)
	last := passages[2]
	assert.Equal(t, 3, last.PageNumber)
	assert.True(t, strings.HasSuffix(last.Text, seg2+"\n\n"+short))
	assert.Equal(t, 1, strings.Count(last.Text, short), "merged text must not be duplicated")
	assert.True(t, strings.HasPrefix(last.Text, lastWords(seg1, 100)))
}

func TestChunk_NoMergeWithTwoPassages(t *testing.T) {
	seg0 := longText("a", 2000)
	passages := Chunk([]core.RawSegment{segment(seg0, 1), segment("tiny tail", 2)}, DefaultOptions())
	require.Len(t, passages, 2)
	assert.Equal(t, "tiny tail", passages[1].Text)
}

func TestChunk_WhitespaceHeuristic(t *testing.T) {
	blob := "aGVsbG8gd29ybGQgdGhpcyBpcyBiYXNlNjQ="
	segments := []core.RawSegment{segment(blob, 1), segment("real words here", 2)}

	t.Run("drops segments without internal spaces", func(t *testing.T) {
		passages := Chunk(segments, DefaultOptions())
		require.Len(t, passages, 1)
		assert.Equal(t, "real words here", passages[0].Text)
		assert.Equal(t, 2, passages[0].PageNumber)
	})

	t.Run("plain text keeps them", func(t *testing.T) {
		opts := DefaultOptions()
		opts.PlainText = true
		passages := Chunk(segments, opts)
		require.Len(t, passages, 1)
		assert.Equal(t, blob+"\n\nreal words here", passages[0].Text)
		assert.Equal(t, 1, passages[0].PageNumber)
	})

	t.Run("only filtered segments produce nothing", func(t *testing.T) {
		assert.Empty(t, Chunk([]core.RawSegment{segment(blob, 1)}, DefaultOptions()))
	})
}

func TestChunk_DropsBlankSegments(t *testing.T) {
	opts := DefaultOptions()
	opts.PlainText = true
	passages := Chunk([]core.RawSegment{
		{Text: ""}, {Text: "line one"}, {Text: "   "}, {Text: "line two"},
	}, opts)
	require.Len(t, passages, 1)
	assert.Equal(t, "line one\n\nline two", passages[0].Text)
}

func TestChunk_PageNumberProvenance(t *testing.T) {
	segments := []core.RawSegment{
		segment(longText("p", 2100), 5),
		segment("follows on page six", 6),
		segment("also page six", 6),
	}

	passages := Chunk(segments, DefaultOptions())
	require.Len(t, passages, 2)
	pages := map[int]bool{5: true, 6: true}
	for _, p := range passages {
		assert.True(t, pages[p.PageNumber], "page %d not from any segment", p.PageNumber)
	}
	assert.Equal(t, 5, passages[0].PageNumber)
	assert.Equal(t, 6, passages[1].PageNumber)
}

func TestChunk_CustomSplitLength(t *testing.T) {
	opts := Options{SplitLength: 10, OverlapWords: 1}
	passages := Chunk([]core.RawSegment{
		segment("one two three four", 1),
		segment("five six seven eight", 2),
	}, opts)

	require.Len(t, passages, 2)
	assert.Equal(t, "one two three four\n\nfive", passages[0].Text)
	assert.Equal(t, "five six seven eight", passages[1].Text)
}
