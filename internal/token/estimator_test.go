package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single char rounds up", text: "a", want: 1},
		{name: "exactly one token", text: "abcd", want: 1},
		{name: "five chars rounds up", text: "abcde", want: 2},
		{name: "ten thousand chars", text: strings.Repeat("x", 10000), want: 2500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestEstimateMonotonic(t *testing.T) {
	// Longer text never estimates to fewer tokens.
	prev := 0
	for i := 0; i < 64; i++ {
		est := Estimate(strings.Repeat("a", i))
		assert.GreaterOrEqual(t, est, prev)
		prev = est
	}
}
