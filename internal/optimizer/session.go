package optimizer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/optimd/internal/token"
)

// Session summarization constants.
const (
	// DefaultMaxRecentMessages is the message-count budget applied when the
	// caller passes a non-positive value.
	DefaultMaxRecentMessages = 10

	// minSentenceLen filters fragments when picking a message's lead sentence.
	minSentenceLen = 10

	// maxSummarySentences bounds how many lead sentences the synopsis joins.
	maxSummarySentences = 5

	// summaryTokenBudget caps the synopsis; past it the text is truncated.
	summaryTokenBudget = 200

	// summaryTruncateChars is the hard character cut applied over budget.
	summaryTruncateChars = 600
)

// OptimizeSession collapses conversation history exceeding the
// message-count budget. All system messages and the last maxRecent
// messages are preserved verbatim; everything older is summarized into one
// synthetic system message placed between them.
func (s *Service) OptimizeSession(ctx context.Context, messages []Message, maxRecent int) Result {
	ctx, span := s.tracer.Start(ctx, "optimizer.optimize_session",
		trace.WithAttributes(
			attribute.Int("messages", len(messages)),
			attribute.Int("max_recent", maxRecent)))
	defer span.End()
	start := time.Now()

	if maxRecent <= 0 {
		maxRecent = DefaultMaxRecentMessages
	}

	originalTokens := sumTokens(messages)

	if len(messages) <= maxRecent {
		result := resultFromTokens(originalTokens, originalTokens,
			StrategyNoOptimization, marshalMessages(messages))
		return s.finish(ctx, "session", result, start)
	}

	recentStart := len(messages) - maxRecent
	recent := messages[recentStart:]

	var systems, old []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			systems = append(systems, m)
		}
	}
	for _, m := range messages[:recentStart] {
		if m.Role != RoleSystem {
			old = append(old, m)
		}
	}

	if len(old) == 0 {
		// Everything outside the recent window is a system message; there
		// is nothing to summarize.
		result := resultFromTokens(originalTokens, originalTokens,
			StrategyNoOptimization, marshalMessages(messages))
		return s.finish(ctx, "session", result, start)
	}

	summary := Message{
		Role: RoleSystem,
		Content: fmt.Sprintf("[Previous conversation summary (%d messages)]: %s",
			len(old), summarize(old)),
	}

	optimized := make([]Message, 0, len(systems)+1+len(recent))
	optimized = append(optimized, systems...)
	optimized = append(optimized, summary)
	optimized = append(optimized, recent...)

	strategy := fmt.Sprintf("context-summarization:%d→1", len(old))
	result := resultFromTokens(originalTokens, sumTokens(optimized),
		strategy, marshalMessages(optimized))

	s.logger.Debug("session optimized",
		zap.Int("old_messages", len(old)),
		zap.Int("system_messages", len(systems)),
		zap.Int("recent_messages", len(recent)),
		zap.Int("savings", result.Savings))

	return s.finish(ctx, "session", result, start)
}

func sumTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += token.Estimate(m.Content)
	}
	return total
}

// summarize builds the synopsis body: the lead sentence of each old
// message, up to maxSummarySentences, joined with ". ". If the estimate
// exceeds the token budget the text is hard-truncated with an ellipsis.
func summarize(old []Message) string {
	var sentences []string
	for _, m := range old {
		if lead := leadSentence(m.Content); lead != "" {
			sentences = append(sentences, lead)
		}
		if len(sentences) == maxSummarySentences {
			break
		}
	}

	text := strings.Join(sentences, ". ")
	if token.Estimate(text) > summaryTokenBudget {
		cut := summaryTruncateChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

// leadSentence returns the first sentence of content longer than
// minSentenceLen characters, or "".
func leadSentence(content string) string {
	var current strings.Builder
	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if len(sentence) > minSentenceLen {
				return strings.TrimRight(sentence, ".!?")
			}
			current.Reset()
		}
	}
	sentence := strings.TrimSpace(current.String())
	if len(sentence) > minSentenceLen {
		return sentence
	}
	return ""
}
