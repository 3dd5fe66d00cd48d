// Package optimizer reduces estimated token consumption of chat traffic
// before it reaches a paid LLM provider.
//
// Four public operations share one content-addressed store:
//
//   - OptimizePrompt replaces a recognized system prompt with a compact
//     parameterized template.
//   - OptimizeMessage extracts oversized code and JSON blocks into the
//     store, then compacts the remaining text.
//   - OptimizeSession collapses old conversation turns into a single
//     bounded synopsis, preserving system messages and recent turns.
//   - OptimizeFile stores a file attachment and returns a short reference.
//
// All operations are total functions over valid-shaped input: empty or
// degenerate input degrades to a zero-savings pass-through rather than an
// error. The only failure surfaced to callers is an oversized file upload.
package optimizer
