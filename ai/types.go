package ai

import "strings"

// SummarySeparator separates passage summaries handed to CombineSummaries.
const SummarySeparator = "\n---\n"

// JoinSummaries renders summaries the way they are presented to the model.
func JoinSummaries(summaries []string) string {
	return strings.Join(summaries, SummarySeparator)
}
