// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docvec/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptySummary is returned when the model produces no text.
var ErrEmptySummary = errors.New("model returned an empty summary")

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client      llms.Model
	prompts     promptBook
	temperature float64
	limiter     *limiter
	logger      *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return newSummarizerWithClient(client, config.Temperature, newLimiter(config.RequestsPerSecond, config.Burst))
}

// newSummarizerWithClient wraps any langchaingo chat model.
func newSummarizerWithClient(client llms.Model, temperature float64, l *limiter) (*Summarizer, error) {
	book, err := loadPrompts(defaultPrompts, promptSummary, promptSummaryAll)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client:      client,
		prompts:     book,
		temperature: temperature,
		limiter:     l,
		logger:      slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// SummarizePassage summarizes one representative passage.
func (s *Summarizer) SummarizePassage(ctx context.Context, text string) (string, error) {
	return s.complete(ctx, promptSummary, scrubString(text))
}

// CombineSummaries merges passage summaries into one document summary.
// A lone summary is still sent through the combine prompt.
func (s *Summarizer) CombineSummaries(ctx context.Context, summaries []string) (string, error) {
	return s.complete(ctx, promptSummaryAll, ai.JoinSummaries(summaries))
}

func (s *Summarizer) complete(ctx context.Context, prompt, text string) (string, error) {
	content, err := s.prompts.messages(prompt, text)
	if err != nil {
		return "", err
	}

	if err := s.limiter.wait(ctx); err != nil {
		return "", err
	}

	response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(s.temperature))
	if err != nil {
		s.logger.Error("failed to generate content", "prompt", prompt, "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptySummary
	}

	summary := strings.TrimSpace(response.Choices[0].Content)
	if summary == "" {
		return "", ErrEmptySummary
	}
	s.logger.Debug("generated summary", "prompt", prompt, "input", len(text), "output", len(summary))
	return summary, nil
}
