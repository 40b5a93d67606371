package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "connection reset by peer", "connection reset by peer", 1},
		{"case and spacing ignored", "Connection  RESET", "connection reset", 1},
		{"both empty", "", "   ", 1},
		{"one empty", "", "boom", 0},
		{"disjoint", "alpha beta", "gamma delta", 0},
		{"four of five", "alpha beta gamma delta epsilon", "alpha beta gamma delta zeta", 0.8},
		{"divides by larger set", "alpha beta", "alpha beta gamma delta", 0.5},
		{"duplicate words collapse", "a a a b", "a b", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Similarity(tt.a, tt.b), Similarity(tt.b, tt.a), 1e-9, "symmetric")
		})
	}
}
