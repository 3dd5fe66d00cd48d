package optimizer

import (
	"encoding/json"

	"github.com/fyrsmithlabs/optimd/internal/token"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Strategy tags identifying which transform fired. Observability only;
// callers must not branch on them.
const (
	StrategyNone           = "none"
	StrategyNoOptimization = "no-optimization-needed"
	StrategyFileReference  = "file-reference"

	stageCodeExtraction = "code-extraction"
	stageJSONExtraction = "json-extraction"
	stageTextCompaction = "text-compaction"
)

// Result is the uniform output of every optimizer operation. It is
// constructed fresh per call and never stored.
type Result struct {
	OriginalTokens   int     `json:"original_tokens"`
	OptimizedTokens  int     `json:"optimized_tokens"`
	Savings          int     `json:"savings"`
	SavingsPercent   float64 `json:"savings_percent"`
	Strategy         string  `json:"strategy"`
	OptimizedContent string  `json:"optimized_content"`
}

// newResult builds a Result from the original and optimized content.
func newResult(original, optimized, strategy string) Result {
	return resultFromTokens(token.Estimate(original), token.Estimate(optimized), strategy, optimized)
}

// resultFromTokens builds a Result from precomputed token counts. Savings
// are clamped at zero and the percentage is guarded against a zero
// denominator so degenerate input never produces NaN or negative metrics.
func resultFromTokens(originalTokens, optimizedTokens int, strategy, content string) Result {
	savings := originalTokens - optimizedTokens
	if savings < 0 {
		savings = 0
	}
	percent := 0.0
	if originalTokens > 0 {
		percent = float64(savings) / float64(originalTokens) * 100
	}
	return Result{
		OriginalTokens:   originalTokens,
		OptimizedTokens:  optimizedTokens,
		Savings:          savings,
		SavingsPercent:   percent,
		Strategy:         strategy,
		OptimizedContent: content,
	}
}

// marshalMessages serializes a message list for Result.OptimizedContent.
// Nil and empty both serialize to an empty list, never "null".
func marshalMessages(messages []Message) string {
	if len(messages) == 0 {
		return "[]"
	}
	b, err := json.Marshal(messages)
	if err != nil {
		// Message is two string fields; marshaling cannot fail in practice.
		return "[]"
	}
	return string(b)
}
