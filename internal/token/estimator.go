// Package token provides the shared token estimation heuristic used by
// every optimization strategy.
//
// The estimate is a deliberate approximation (roughly four characters per
// token) rather than a vendor tokenizer. Absolute counts diverge from
// provider billing, but before/after comparisons stay internally
// consistent because every component uses the same function.
package token

// CharsPerToken is the assumed average character width of one token.
const CharsPerToken = 4

// Estimate returns the approximate token count for text: ceil(len/4).
// An empty string estimates to zero tokens.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}
