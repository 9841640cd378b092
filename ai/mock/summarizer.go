package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/docvec/ai"
)

// summaryWords is how many leading words the default behavior keeps.
const summaryWords = 12

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizePassageFunc is called by SummarizePassage if set.
	SummarizePassageFunc func(ctx context.Context, text string) (string, error)

	// CombineSummariesFunc is called by CombineSummaries if set.
	CombineSummariesFunc func(ctx context.Context, summaries []string) (string, error)

	passageCalls atomic.Int64
	combineCalls atomic.Int64
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// SummarizePassage returns the leading words of text.
func (m *MockSummarizer) SummarizePassage(ctx context.Context, text string) (string, error) {
	m.passageCalls.Add(1)
	if m.SummarizePassageFunc != nil {
		return m.SummarizePassageFunc(ctx, text)
	}
	words := strings.Fields(text)
	if len(words) > summaryWords {
		words = words[:summaryWords]
	}
	return strings.Join(words, " "), nil
}

// CombineSummaries joins summaries with ai.SummarySeparator.
func (m *MockSummarizer) CombineSummaries(ctx context.Context, summaries []string) (string, error) {
	m.combineCalls.Add(1)
	if m.CombineSummariesFunc != nil {
		return m.CombineSummariesFunc(ctx, summaries)
	}
	return ai.JoinSummaries(summaries), nil
}

// PassageCalls returns how many passages were summarized.
func (m *MockSummarizer) PassageCalls() int {
	return int(m.passageCalls.Load())
}

// CombineCalls returns how many times summaries were combined.
func (m *MockSummarizer) CombineCalls() int {
	return int(m.combineCalls.Load())
}
